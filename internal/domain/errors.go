package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for business-rule checks. Callers match with errors.Is.
var (
	ErrInvalidTransition     = errors.New("invalid payment status transition")
	ErrEventNotRegistrable   = errors.New("event is not open for registration")
	ErrEventFull             = errors.New("event has reached capacity")
	ErrDuplicateRegistration = errors.New("registration already exists for this event and identity")
	ErrRegistrationCancelled = errors.New("registration is cancelled")
	ErrPromoInvalid          = errors.New("promo code is not valid")
	ErrPromoNotFound         = errors.New("promo code not found")
	ErrPromoExhausted        = errors.New("promo code usage limit reached")
	ErrRefundNotAllowed      = errors.New("payment cannot be refunded in its current status")
	ErrConflictingSettlement = errors.New("conflicting terminal settlement for payment")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrMissingRequiredField  = errors.New("missing required field")
)

func NewInvalidTransitionError(from, to PaymentStatus) error {
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
}

func NewMissingRequiredFieldError(field string) error {
	return fmt.Errorf("%w: %s is required", ErrMissingRequiredField, field)
}
