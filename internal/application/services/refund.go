package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/domain"
)

// RefundService reverses a completed payment through the gateway and applies
// the local REFUNDED transition. The gateway call happens before the local
// mutation: a gateway failure leaves local state untouched and the request is
// safe to retry.
//
// Refunding deliberately does not free the event's capacity slot or cancel
// the registration; whether a refunded seat is released stays a caller
// decision made through the cancel flow.
type RefundService struct {
	store          application.Store
	gateway        application.PaymentGateway
	logger         *slog.Logger
	gatewayTimeout time.Duration
	now            func() time.Time
}

func NewRefundService(
	store application.Store,
	gateway application.PaymentGateway,
	gatewayTimeout time.Duration,
	logger *slog.Logger,
) *RefundService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 30 * time.Second
	}
	return &RefundService{
		store:          store,
		gateway:        gateway,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
		now:            time.Now,
	}
}

func (s *RefundService) Refund(ctx context.Context, cmd RefundCommand) (*domain.Payment, error) {
	payment, err := s.store.Payments().FindByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.StatusCompleted {
		return nil, fmt.Errorf("%w: payment %s is %s", domain.ErrRefundNotAllowed, payment.ID, payment.Status)
	}
	if payment.InvoiceID == nil {
		return nil, fmt.Errorf("%w: payment %s has no invoice", domain.ErrRefundNotAllowed, payment.ID)
	}

	amount := payment.AmountCents
	if cmd.AmountCents != nil {
		amount = *cmd.AmountCents
	}
	if amount <= 0 || amount > payment.AmountCents {
		return nil, fmt.Errorf("%w: refund amount %d out of range", domain.ErrInvalidAmount, amount)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	resp, err := s.gateway.CancelInvoice(callCtx, application.CancelInvoiceRequest{
		InvoiceID:   *payment.InvoiceID,
		AmountCents: amount,
		ExternalRef: cmd.ExternalRef,
	})
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(tx application.Store) error {
		// Re-read under the transaction: a concurrent refund must not apply
		// the transition twice.
		fresh, err := tx.Payments().FindByID(ctx, payment.ID)
		if err != nil {
			return err
		}
		if err := fresh.Refund(resp.RefundRef, amount, s.now()); err != nil {
			return err
		}
		if err := tx.Payments().Update(ctx, fresh); err != nil {
			return err
		}
		payment = fresh

		registration, err := tx.Registrations().FindByID(ctx, fresh.RegistrationID)
		if err != nil {
			return err
		}
		// The original settlement redeemed the code; hand the usage back.
		if registration.PromoCodeID != nil {
			if err := tx.PromoCodes().Reverse(ctx, *registration.PromoCodeID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("refund settled at gateway but local mutation failed",
			"payment_id", payment.ID,
			"invoice_id", *payment.InvoiceID,
			"refund_ref", resp.RefundRef,
			"error", err,
		)
		return nil, err
	}

	return payment, nil
}
