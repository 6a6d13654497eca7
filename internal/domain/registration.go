package domain

import (
	"strings"
	"time"
)

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "PENDING"
	RegistrationConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
)

type RegistrationPaymentStatus string

const (
	RegPaymentPending   RegistrationPaymentStatus = "PENDING"
	RegPaymentCompleted RegistrationPaymentStatus = "COMPLETED"
	RegPaymentFailed    RegistrationPaymentStatus = "FAILED"
)

// Registration is one attendee's registration for an event. It is created
// PENDING/PENDING and only settlement moves it to CONFIRMED/COMPLETED.
type Registration struct {
	ID              string
	EventID         string
	UserID          *string
	Email           string
	FullName        string
	Phone           string
	PromoCode       *string
	PromoCodeID     *string
	Status          RegistrationStatus
	PaymentStatus   RegistrationPaymentStatus
	FinalPriceCents int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewRegistration(id, eventID, email, fullName, phone string, userID *string) (*Registration, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("registration ID")
	}
	if eventID == "" {
		return nil, NewMissingRequiredFieldError("event ID")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, NewMissingRequiredFieldError("email")
	}
	if fullName == "" {
		return nil, NewMissingRequiredFieldError("full name")
	}

	return &Registration{
		ID:            id,
		EventID:       eventID,
		UserID:        userID,
		Email:         email,
		FullName:      fullName,
		Phone:         phone,
		Status:        RegistrationPending,
		PaymentStatus: RegPaymentPending,
		CreatedAt:     time.Now(),
	}, nil
}

// ApplyQuote records the promo code used (if any) and the computed price.
func (r *Registration) ApplyQuote(quote Quote, promo *PromoCode) {
	r.FinalPriceCents = quote.FinalPriceCents
	if promo != nil {
		code := promo.Code
		id := promo.ID
		r.PromoCode = &code
		r.PromoCodeID = &id
	}
}

// Confirm marks the registration paid and attending. Settlement is the only
// caller.
func (r *Registration) Confirm() error {
	if r.Status == RegistrationCancelled {
		return ErrRegistrationCancelled
	}
	r.Status = RegistrationConfirmed
	r.PaymentStatus = RegPaymentCompleted
	return nil
}

// MarkPaymentFailed records a failed payment attempt. The registration itself
// stays in place so the attendee can retry.
func (r *Registration) MarkPaymentFailed() error {
	if r.Status == RegistrationCancelled {
		return ErrRegistrationCancelled
	}
	r.PaymentStatus = RegPaymentFailed
	return nil
}

// Cancel is legal from any payment state; cancelling twice is an error.
func (r *Registration) Cancel() error {
	if r.Status == RegistrationCancelled {
		return ErrRegistrationCancelled
	}
	r.Status = RegistrationCancelled
	return nil
}
