package application

import (
	"context"
	"errors"
	"time"

	"github.com/okhomenko/eventgate/internal/domain"
)

// Not-found errors surfaced by the store ports.
var (
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrPaymentNotFound      = errors.New("payment not found")
)

// EventRepository owns the capacity counter. ReserveSeat must be a guarded
// atomic increment: it succeeds only while registered_count < capacity and the
// event date is still in the future.
type EventRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Event, error)
	ReserveSeat(ctx context.Context, eventID string, now time.Time) error
	ReleaseSeat(ctx context.Context, eventID string) error
}

type RegistrationRepository interface {
	// Create maps the store's uniqueness violation on (event, identity) to
	// domain.ErrDuplicateRegistration.
	Create(ctx context.Context, reg *domain.Registration) error
	FindByID(ctx context.Context, id string) (*domain.Registration, error)
	FindPendingByEmailAndEvent(ctx context.Context, email, eventID string) (*domain.Registration, error)
	Update(ctx context.Context, reg *domain.Registration) error
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	FindByID(ctx context.Context, id string) (*domain.Payment, error)
	FindByRegistrationID(ctx context.Context, registrationID string) (*domain.Payment, error)
	FindByInvoiceID(ctx context.Context, invoiceID string) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
	Delete(ctx context.Context, id string) error
	// FindStalePending returns PENDING payments created before the cutoff,
	// filtered by whether an invoice was ever attached.
	FindStalePending(ctx context.Context, cutoff time.Time, withInvoice bool, limit int) ([]*domain.Payment, error)
}

// PromoCodeRepository is the promo ledger. Redeem and Reverse are atomic
// counter moves: Redeem fails with domain.ErrPromoNotFound or
// domain.ErrPromoExhausted instead of ever pushing used_count past the limit;
// Reverse clamps at zero.
type PromoCodeRepository interface {
	FindByID(ctx context.Context, id string) (*domain.PromoCode, error)
	FindByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	Redeem(ctx context.Context, id string) error
	Reverse(ctx context.Context, id string) error
}

// Store aggregates the repositories over one backing database. WithinTx runs
// fn against a transaction-scoped Store; any error rolls back every write.
type Store interface {
	Events() EventRepository
	Registrations() RegistrationRepository
	Payments() PaymentRepository
	PromoCodes() PromoCodeRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// ProviderStatus is the payment provider's invoice status vocabulary.
type ProviderStatus string

const (
	ProviderCreated    ProviderStatus = "created"
	ProviderProcessing ProviderStatus = "processing"
	ProviderSuccess    ProviderStatus = "success"
	ProviderFailure    ProviderStatus = "failure"
	ProviderExpired    ProviderStatus = "expired"
	ProviderHold       ProviderStatus = "hold"
)

type MerchantData struct {
	RegistrationID string `json:"registrationId"`
	CustomerName   string `json:"customerName"`
	EventTitle     string `json:"eventTitle"`
}

type CreateInvoiceRequest struct {
	AmountCents  int64
	Currency     string
	Description  string
	MerchantData MerchantData
}

type CreateInvoiceResponse struct {
	InvoiceID   string
	PaymentLink string
}

type CancelInvoiceRequest struct {
	InvoiceID   string
	AmountCents int64
	ExternalRef string
}

type CancelInvoiceResponse struct {
	RefundRef string
	Status    string
}

type InvoiceStatusResponse struct {
	InvoiceID         string
	Status            ProviderStatus
	ProviderPaymentID string
	AmountCents       int64
}

// PaymentGateway talks to the external payment provider. Implementations own
// the timeout and retry policy; callers never hold a store transaction open
// across these calls.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreateInvoiceResponse, error)
	CancelInvoice(ctx context.Context, req CancelInvoiceRequest) (*CancelInvoiceResponse, error)
	InvoiceStatus(ctx context.Context, invoiceID string) (*InvoiceStatusResponse, error)
}

// SignatureVerifier checks a webhook signature over the raw request body.
// Bypassed reports whether verification is disabled (no secret configured),
// which deployments must be able to assert off in production.
type SignatureVerifier interface {
	Verify(body []byte, signature string) error
	Bypassed() bool
}

type ConfirmationNotice struct {
	RegistrationID string `json:"registration_id"`
	PaymentID      string `json:"payment_id"`
	EventID        string `json:"event_id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
}

type FailureNotice struct {
	RegistrationID string `json:"registration_id"`
	PaymentID      string `json:"payment_id"`
	EventID        string `json:"event_id"`
	Email          string `json:"email"`
	RetryLink      string `json:"retry_link"`
}

// Notifier dispatches settlement outcome notifications. Calls are
// fire-and-forget from the caller's point of view: errors are logged, never
// propagated into the settlement transaction.
type Notifier interface {
	RegistrationConfirmed(ctx context.Context, notice ConfirmationNotice) error
	PaymentFailed(ctx context.Context, notice FailureNotice) error
}
