package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/domain"
)

// RegistrationResult is what the public create endpoint returns: the pending
// registration and the provider page the client is redirected to.
type RegistrationResult struct {
	Registration *domain.Registration
	Payment      *domain.Payment
	PaymentLink  string
}

// RegistrationService orchestrates capacity-safe registration creation and
// the registration-side flows (cancel, resume-payment lookup).
//
// Transaction discipline is commit-then-call: the registration, the capacity
// increment and the pending payment row commit first; the gateway invoice is
// created outside any transaction, then persisted in a second short
// transaction. A gateway failure triggers an immediate compensating
// transaction; crashes inside the window are mopped up by the sweeper.
type RegistrationService struct {
	store          application.Store
	gateway        application.PaymentGateway
	ledger         *PromoLedger
	logger         *slog.Logger
	gatewayTimeout time.Duration
	now            func() time.Time
}

func NewRegistrationService(
	store application.Store,
	gateway application.PaymentGateway,
	ledger *PromoLedger,
	gatewayTimeout time.Duration,
	logger *slog.Logger,
) *RegistrationService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 30 * time.Second
	}
	return &RegistrationService{
		store:          store,
		gateway:        gateway,
		ledger:         ledger,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
		now:            time.Now,
	}
}

// CreateRegistration validates capacity and duplicate rules, computes the
// price, creates the pending registration+payment and issues the provider
// invoice. Any precondition failure aborts with no side effects.
func (s *RegistrationService) CreateRegistration(ctx context.Context, cmd CreateRegistrationCommand) (*RegistrationResult, error) {
	var (
		registration *domain.Registration
		payment      *domain.Payment
		eventTitle   string
	)

	err := s.store.WithinTx(ctx, func(tx application.Store) error {
		event, err := tx.Events().FindByID(ctx, cmd.EventID)
		if err != nil {
			return err
		}
		if err := event.Registrable(s.now()); err != nil {
			return err
		}
		eventTitle = event.Title

		// Promo eligibility is checked here; redemption happens only at
		// settlement so abandoned payments never consume limited codes.
		var promo *domain.PromoCode
		if strings.TrimSpace(cmd.PromoCode) != "" {
			promo, err = s.ledger.Validate(ctx, cmd.PromoCode, event.ID)
			if err != nil {
				return err
			}
		}

		registration, err = domain.NewRegistration(
			uuid.New().String(), event.ID, cmd.Email, cmd.FullName, cmd.Phone, cmd.UserID,
		)
		if err != nil {
			return err
		}
		registration.ApplyQuote(domain.CalculatePrice(event.BasePriceCents, promo), promo)

		// Uniqueness on (event, identity) is the store's job; a duplicate
		// surfaces here as domain.ErrDuplicateRegistration.
		if err := tx.Registrations().Create(ctx, registration); err != nil {
			return err
		}

		if err := tx.Events().ReserveSeat(ctx, event.ID, s.now()); err != nil {
			return err
		}

		money, err := domain.NewMoney(registration.FinalPriceCents, event.Currency)
		if err != nil {
			return err
		}
		payment, err = domain.NewPayment(uuid.New().String(), registration.ID, money)
		if err != nil {
			return err
		}
		return tx.Payments().Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	invoice, err := s.createInvoice(ctx, registration, payment, eventTitle)
	if err != nil {
		s.compensate(ctx, registration, payment)
		return nil, err
	}

	payment.AttachInvoice(invoice.InvoiceID, invoice.PaymentLink)
	if err := s.store.WithinTx(ctx, func(tx application.Store) error {
		return tx.Payments().Update(ctx, payment)
	}); err != nil {
		// The invoice exists but was not persisted; the sweeper will release
		// this invoice-less pending payment and the provider invoice expires.
		s.logger.Error("failed to persist invoice on payment",
			"payment_id", payment.ID,
			"invoice_id", invoice.InvoiceID,
			"error", err,
		)
		return nil, application.NewInternalError(err)
	}

	return &RegistrationResult{
		Registration: registration,
		Payment:      payment,
		PaymentLink:  invoice.PaymentLink,
	}, nil
}

func (s *RegistrationService) createInvoice(
	ctx context.Context,
	registration *domain.Registration,
	payment *domain.Payment,
	eventTitle string,
) (*application.CreateInvoiceResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	return s.gateway.CreateInvoice(callCtx, application.CreateInvoiceRequest{
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Description: fmt.Sprintf("Registration for %s", eventTitle),
		MerchantData: application.MerchantData{
			RegistrationID: registration.ID,
			CustomerName:   registration.FullName,
			EventTitle:     eventTitle,
		},
	})
}

// compensate unwinds a committed registration whose invoice could not be
// created: the payment row is deleted, the registration cancelled and the
// capacity slot released.
func (s *RegistrationService) compensate(ctx context.Context, registration *domain.Registration, payment *domain.Payment) {
	err := s.store.WithinTx(ctx, func(tx application.Store) error {
		if err := tx.Payments().Delete(ctx, payment.ID); err != nil {
			return err
		}
		if err := registration.Cancel(); err != nil {
			return err
		}
		if err := tx.Registrations().Update(ctx, registration); err != nil {
			return err
		}
		return tx.Events().ReleaseSeat(ctx, registration.EventID)
	})
	if err != nil {
		s.logger.Error("compensation after gateway failure did not complete",
			"registration_id", registration.ID,
			"payment_id", payment.ID,
			"error", err,
		)
	}
}

// Cancel marks a registration cancelled and releases its capacity slot. Only
// the owner (matching subject or email) or an admin may cancel.
func (s *RegistrationService) Cancel(ctx context.Context, registrationID string, actor Actor) error {
	return s.store.WithinTx(ctx, func(tx application.Store) error {
		registration, err := tx.Registrations().FindByID(ctx, registrationID)
		if err != nil {
			return err
		}

		if !s.owns(registration, actor) {
			return application.NewForbiddenError("registration belongs to another user")
		}

		if err := registration.Cancel(); err != nil {
			return err
		}
		if err := tx.Registrations().Update(ctx, registration); err != nil {
			return err
		}
		return tx.Events().ReleaseSeat(ctx, registration.EventID)
	})
}

func (s *RegistrationService) owns(registration *domain.Registration, actor Actor) bool {
	if actor.Admin {
		return true
	}
	if registration.UserID != nil && actor.Subject != "" && *registration.UserID == actor.Subject {
		return true
	}
	return actor.Email != "" && strings.EqualFold(registration.Email, actor.Email)
}

// PaymentLinkByEmail returns the stored payment link for a pending
// registration, so an abandoned payment can be resumed.
func (s *RegistrationService) PaymentLinkByEmail(ctx context.Context, email, eventID string) (string, error) {
	registration, err := s.store.Registrations().FindPendingByEmailAndEvent(
		ctx, strings.ToLower(strings.TrimSpace(email)), eventID,
	)
	if err != nil {
		return "", err
	}

	payment, err := s.store.Payments().FindByRegistrationID(ctx, registration.ID)
	if err != nil {
		return "", err
	}
	if payment.PaymentLink == nil || payment.Status != domain.StatusPending && payment.Status != domain.StatusFailed {
		return "", application.ErrPaymentNotFound
	}
	return *payment.PaymentLink, nil
}

// ReleaseAbandoned compensates a pending payment that never received an
// invoice (the crash window of commit-then-call). Called by the sweeper.
func (s *RegistrationService) ReleaseAbandoned(ctx context.Context, paymentID string) error {
	return s.store.WithinTx(ctx, func(tx application.Store) error {
		payment, err := tx.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != domain.StatusPending || payment.InvoiceID != nil {
			return nil
		}

		registration, err := tx.Registrations().FindByID(ctx, payment.RegistrationID)
		if err != nil {
			return err
		}

		if err := tx.Payments().Delete(ctx, payment.ID); err != nil {
			return err
		}
		if err := registration.Cancel(); err != nil {
			return err
		}
		if err := tx.Registrations().Update(ctx, registration); err != nil {
			return err
		}
		return tx.Events().ReleaseSeat(ctx, registration.EventID)
	})
}
