package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okhomenko/eventgate/internal/domain"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeBadSignature = "BAD_SIGNATURE"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeGateway      = "GATEWAY_ERROR"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

func NewValidationError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    "invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewBadSignatureError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeBadSignature,
		Message:    "webhook signature verification failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewForbiddenError(msg string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "an internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// GatewayError wraps a failure from the external payment provider.
type GatewayError struct {
	Code       string
	Message    string
	StatusCode int
	Timeout    bool
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *GatewayError) IsRetryable() bool {
	return e.Timeout || e.StatusCode >= 500
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}

// ToHTTPStatus maps an error to the HTTP status the REST layer should return.
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, domain.ErrPromoInvalid),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMissingRequiredField):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrDuplicateRegistration),
		errors.Is(err, domain.ErrEventFull),
		errors.Is(err, domain.ErrEventNotRegistrable),
		errors.Is(err, domain.ErrRefundNotAllowed),
		errors.Is(err, domain.ErrConflictingSettlement),
		errors.Is(err, domain.ErrRegistrationCancelled),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPromoExhausted):
		return http.StatusConflict

	case errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrRegistrationNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, domain.ErrPromoNotFound):
		return http.StatusNotFound

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	if gwErr, ok := IsGatewayError(err); ok {
		if gwErr.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// ToErrorCode maps an error to the machine-readable code used in responses.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	switch {
	case errors.Is(err, domain.ErrDuplicateRegistration):
		return "DUPLICATE_REGISTRATION"
	case errors.Is(err, domain.ErrEventFull):
		return "EVENT_FULL"
	case errors.Is(err, domain.ErrEventNotRegistrable):
		return "EVENT_NOT_REGISTRABLE"
	case errors.Is(err, domain.ErrRefundNotAllowed):
		return "REFUND_NOT_ALLOWED"
	case errors.Is(err, domain.ErrConflictingSettlement):
		return "CONFLICTING_SETTLEMENT"
	case errors.Is(err, domain.ErrRegistrationCancelled):
		return "REGISTRATION_CANCELLED"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrPromoInvalid):
		return "PROMO_INVALID"
	case errors.Is(err, domain.ErrPromoNotFound):
		return "PROMO_NOT_FOUND"
	case errors.Is(err, domain.ErrPromoExhausted):
		return "PROMO_EXHAUSTED"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, domain.ErrMissingRequiredField):
		return "MISSING_REQUIRED_FIELD"
	case errors.Is(err, ErrEventNotFound):
		return "EVENT_NOT_FOUND"
	case errors.Is(err, ErrRegistrationNotFound):
		return "REGISTRATION_NOT_FOUND"
	case errors.Is(err, ErrPaymentNotFound):
		return "PAYMENT_NOT_FOUND"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	}

	if _, ok := IsGatewayError(err); ok {
		return ErrCodeGateway
	}

	return ErrCodeInternal
}
