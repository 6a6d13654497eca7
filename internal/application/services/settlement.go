package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/domain"
)

// TerminalOutcome is a provider status already mapped to success or failure.
type TerminalOutcome struct {
	Success           bool
	ProviderPaymentID string
	Payload           []byte
}

type SettlementResult struct {
	Changed      bool
	Payment      *domain.Payment
	Registration *domain.Registration
}

// SettlementService applies a terminal payment outcome to the
// Payment+Registration+PromoCode state. Both the webhook processor and the
// reconciliation poll run through Settle, so replayed and polled deliveries
// share one idempotency semantics.
type SettlementService struct {
	store    application.Store
	notifier application.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewSettlementService(store application.Store, notifier application.Notifier, logger *slog.Logger) *SettlementService {
	return &SettlementService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// MapProviderStatus translates a provider invoice status. terminal=false means
// the status does not settle anything (created/processing/hold) and the caller
// must no-op.
func MapProviderStatus(status application.ProviderStatus) (success, terminal bool) {
	switch status {
	case application.ProviderSuccess:
		return true, true
	case application.ProviderFailure, application.ProviderExpired:
		return false, true
	default:
		return false, false
	}
}

// Settle resolves the payment by invoice id and applies the outcome inside one
// transaction. Re-delivering an already-applied terminal status is a
// successful no-op; a failure arriving after success (or anything after a
// refund) is a conflict anomaly that is logged and rejected. Notifications
// are dispatched after commit and never roll back settlement.
func (s *SettlementService) Settle(ctx context.Context, invoiceID string, outcome TerminalOutcome) (*SettlementResult, error) {
	result := &SettlementResult{}

	err := s.store.WithinTx(ctx, func(tx application.Store) error {
		payment, err := tx.Payments().FindByInvoiceID(ctx, invoiceID)
		if err != nil {
			return err
		}
		result.Payment = payment

		// Idempotency guard: same terminal status twice is a no-op.
		if outcome.Success && payment.Status == domain.StatusCompleted {
			return nil
		}
		if !outcome.Success && payment.Status == domain.StatusFailed {
			return nil
		}

		if payment.Status == domain.StatusRefunded ||
			(!outcome.Success && payment.Status == domain.StatusCompleted) {
			s.logger.Error("conflicting settlement delivery rejected",
				"invoice_id", invoiceID,
				"payment_id", payment.ID,
				"payment_status", payment.Status,
				"incoming_success", outcome.Success,
			)
			return fmt.Errorf("%w: payment %s is %s", domain.ErrConflictingSettlement, payment.ID, payment.Status)
		}

		registration, err := tx.Registrations().FindByID(ctx, payment.RegistrationID)
		if err != nil {
			return err
		}
		result.Registration = registration

		if outcome.Success {
			if err := s.applySuccess(ctx, tx, payment, registration, outcome); err != nil {
				return err
			}
		} else {
			if err := s.applyFailure(ctx, tx, payment, registration, outcome); err != nil {
				return err
			}
		}

		result.Changed = true
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrConflictingSettlement) && !errors.Is(err, application.ErrPaymentNotFound) {
			s.logger.Error("settlement mutation failed",
				"invoice_id", invoiceID,
				"error", err,
			)
		}
		return nil, err
	}

	if result.Changed {
		s.notify(ctx, outcome.Success, result)
	}
	return result, nil
}

func (s *SettlementService) applySuccess(
	ctx context.Context,
	tx application.Store,
	payment *domain.Payment,
	registration *domain.Registration,
	outcome TerminalOutcome,
) error {
	if err := payment.Complete(outcome.ProviderPaymentID, outcome.Payload, s.now()); err != nil {
		return err
	}
	if err := tx.Payments().Update(ctx, payment); err != nil {
		return err
	}

	if err := registration.Confirm(); err != nil {
		return err
	}
	if err := tx.Registrations().Update(ctx, registration); err != nil {
		return err
	}

	// First and only redemption point. A race that finds the code deleted or
	// exhausted must not unsettle a payment the provider already took; the
	// anomaly is logged for the operator instead.
	if registration.PromoCodeID != nil {
		if err := tx.PromoCodes().Redeem(ctx, *registration.PromoCodeID); err != nil {
			s.logger.Error("promo redemption failed during settlement",
				"payment_id", payment.ID,
				"registration_id", registration.ID,
				"promo_code_id", *registration.PromoCodeID,
				"error", err,
			)
		}
	}
	return nil
}

func (s *SettlementService) applyFailure(
	ctx context.Context,
	tx application.Store,
	payment *domain.Payment,
	registration *domain.Registration,
	outcome TerminalOutcome,
) error {
	if err := payment.Fail(outcome.Payload, s.now()); err != nil {
		return err
	}
	if err := tx.Payments().Update(ctx, payment); err != nil {
		return err
	}

	// The registration stays pending so the attendee can retry the payment.
	if err := registration.MarkPaymentFailed(); err != nil {
		return err
	}
	return tx.Registrations().Update(ctx, registration)
}

func (s *SettlementService) notify(ctx context.Context, success bool, result *SettlementResult) {
	payment := result.Payment
	registration := result.Registration

	var err error
	if success {
		err = s.notifier.RegistrationConfirmed(ctx, application.ConfirmationNotice{
			RegistrationID: registration.ID,
			PaymentID:      payment.ID,
			EventID:        registration.EventID,
			Email:          registration.Email,
			FullName:       registration.FullName,
			AmountCents:    payment.AmountCents,
			Currency:       payment.Currency,
		})
	} else {
		retryLink := ""
		if payment.PaymentLink != nil {
			retryLink = *payment.PaymentLink
		}
		err = s.notifier.PaymentFailed(ctx, application.FailureNotice{
			RegistrationID: registration.ID,
			PaymentID:      payment.ID,
			EventID:        registration.EventID,
			Email:          registration.Email,
			RetryLink:      retryLink,
		})
	}
	if err != nil {
		s.logger.Warn("settlement notification dispatch failed",
			"payment_id", payment.ID,
			"registration_id", registration.ID,
			"error", err,
		)
	}
}
