package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/domain"
)

// SyncResult reports whether a reconciliation poll changed anything.
type SyncResult struct {
	Changed bool
	Status  domain.PaymentStatus
}

// ReconciliationService is the fallback for lost webhooks: it polls the
// gateway for the current invoice status and replays it through the same
// settlement transition the webhook uses, so replays stay idempotent.
type ReconciliationService struct {
	store          application.Store
	gateway        application.PaymentGateway
	settlement     *SettlementService
	logger         *slog.Logger
	gatewayTimeout time.Duration
}

func NewReconciliationService(
	store application.Store,
	gateway application.PaymentGateway,
	settlement *SettlementService,
	gatewayTimeout time.Duration,
	logger *slog.Logger,
) *ReconciliationService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 30 * time.Second
	}
	return &ReconciliationService{
		store:          store,
		gateway:        gateway,
		settlement:     settlement,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
	}
}

// SyncPaymentStatus reconciles the payment attached to a registration.
func (s *ReconciliationService) SyncPaymentStatus(ctx context.Context, registrationID string) (*SyncResult, error) {
	payment, err := s.store.Payments().FindByRegistrationID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if payment.InvoiceID == nil {
		// Nothing at the provider to reconcile against.
		return &SyncResult{Changed: false, Status: payment.Status}, nil
	}
	return s.SyncByInvoiceID(ctx, *payment.InvoiceID)
}

// SyncByInvoiceID fetches the provider status for one invoice and applies it
// if it maps to a terminal outcome. A status that is still in flight
// (created/processing/hold) is reported as already up to date.
func (s *ReconciliationService) SyncByInvoiceID(ctx context.Context, invoiceID string) (*SyncResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	status, err := s.gateway.InvoiceStatus(callCtx, invoiceID)
	if err != nil {
		return nil, err
	}

	success, terminal := MapProviderStatus(status.Status)
	if !terminal {
		payment, err := s.store.Payments().FindByInvoiceID(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
		return &SyncResult{Changed: false, Status: payment.Status}, nil
	}

	snapshot, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}

	result, err := s.settlement.Settle(ctx, invoiceID, TerminalOutcome{
		Success:           success,
		ProviderPaymentID: status.ProviderPaymentID,
		Payload:           snapshot,
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.logger.Info("reconciliation applied missed settlement",
			"invoice_id", invoiceID,
			"payment_id", result.Payment.ID,
			"status", result.Payment.Status,
		)
	}
	return &SyncResult{Changed: result.Changed, Status: result.Payment.Status}, nil
}
