// Package domain encodes the registration, payment and promo-code entities
// and their state machines.
package domain

import (
	"slices"
	"time"
)

// PaymentStatus represents the current state of a payment attempt.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusFailed    PaymentStatus = "FAILED"
	StatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment is the single payment attempt owned 1:1 by a registration. Its
// status is a monotone state machine: PENDING -> {COMPLETED, FAILED},
// COMPLETED -> REFUNDED. FAILED -> COMPLETED is allowed so a late success
// after a failure webhook still settles.
type Payment struct {
	ID             string
	RegistrationID string
	AmountCents    int64
	Currency       string
	Status         PaymentStatus

	InvoiceID         *string
	ProviderPaymentID *string
	PaymentLink       *string
	WebhookPayload    []byte

	RefundRef           *string
	RefundedAmountCents *int64

	CreatedAt   time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
	RefundedAt  *time.Time
	UpdatedAt   time.Time
}

func NewPayment(id, registrationID string, amount Money) (*Payment, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("payment ID")
	}
	if registrationID == "" {
		return nil, NewMissingRequiredFieldError("registration ID")
	}

	return &Payment{
		ID:             id,
		RegistrationID: registrationID,
		AmountCents:    amount.AmountCents,
		Currency:       amount.Currency,
		Status:         StatusPending,
		CreatedAt:      time.Now(),
	}, nil
}

// AttachInvoice records the provider-side invoice once it has been created.
func (p *Payment) AttachInvoice(invoiceID, paymentLink string) {
	p.InvoiceID = &invoiceID
	p.PaymentLink = &paymentLink
}

// Complete transitions the payment to COMPLETED and stores the provider
// payment id and the raw webhook payload snapshot.
func (p *Payment) Complete(providerPaymentID string, payload []byte, completedAt time.Time) error {
	if err := p.transition(StatusCompleted); err != nil {
		return err
	}
	if providerPaymentID != "" {
		p.ProviderPaymentID = &providerPaymentID
	}
	p.WebhookPayload = payload
	p.CompletedAt = &completedAt
	return nil
}

// Fail transitions the payment to FAILED, keeping the payload snapshot.
func (p *Payment) Fail(payload []byte, failedAt time.Time) error {
	if err := p.transition(StatusFailed); err != nil {
		return err
	}
	p.WebhookPayload = payload
	p.FailedAt = &failedAt
	return nil
}

// Refund transitions a COMPLETED payment to REFUNDED and appends the refund
// metadata. Any other starting status is ErrRefundNotAllowed.
func (p *Payment) Refund(refundRef string, amountCents int64, refundedAt time.Time) error {
	if p.Status != StatusCompleted {
		return ErrRefundNotAllowed
	}
	if err := p.transition(StatusRefunded); err != nil {
		return err
	}
	if refundRef != "" {
		p.RefundRef = &refundRef
	}
	p.RefundedAmountCents = &amountCents
	p.RefundedAt = &refundedAt
	return nil
}

func (p *Payment) transition(target PaymentStatus) error {
	if err := p.canTransitionTo(target); err != nil {
		return err
	}
	p.Status = target
	return nil
}

func (p *Payment) canTransitionTo(target PaymentStatus) error {
	switch p.Status {
	case StatusPending:
		return p.allow(target, StatusCompleted, StatusFailed)
	case StatusFailed:
		return p.allow(target, StatusCompleted)
	case StatusCompleted:
		return p.allow(target, StatusRefunded)
	}
	return NewInvalidTransitionError(p.Status, target)
}

func (p *Payment) allow(target PaymentStatus, allowed ...PaymentStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(p.Status, target)
}

// IsSettled reports whether a terminal outcome has been applied.
func (p *Payment) IsSettled() bool {
	switch p.Status {
	case StatusCompleted, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}
