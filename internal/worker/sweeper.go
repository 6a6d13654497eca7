package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/application/services"
)

// Sweeper is the background safety net for payments stuck in PENDING:
//   - payments with an invoice are reconciled against the provider, covering
//     lost webhooks;
//   - payments that never got an invoice (crash between the first commit and
//     invoice persistence, or abandoned checkouts) are compensated so their
//     seats return to the pool.
type Sweeper struct {
	store          application.Store
	reconcile      *services.ReconciliationService
	registrations  *services.RegistrationService
	interval       time.Duration
	staleThreshold time.Duration
	batchSize      int
	logger         *slog.Logger
	now            func() time.Time
}

func NewSweeper(
	store application.Store,
	reconcile *services.ReconciliationService,
	registrations *services.RegistrationService,
	interval time.Duration,
	staleThreshold time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleThreshold <= 0 {
		staleThreshold = 15 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Sweeper{
		store:          store,
		reconcile:      reconcile,
		registrations:  registrations,
		interval:       interval,
		staleThreshold: staleThreshold,
		batchSize:      batchSize,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting payment sweeper",
		"interval", s.interval,
		"stale_threshold", s.staleThreshold,
		"batch_size", s.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping payment sweeper")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep cycle.
func (s *Sweeper) RunOnce(ctx context.Context) {
	cutoff := s.now().Add(-s.staleThreshold)
	s.syncInvoiced(ctx, cutoff)
	s.releaseAbandoned(ctx, cutoff)
}

func (s *Sweeper) syncInvoiced(ctx context.Context, cutoff time.Time) {
	stale, err := s.store.Payments().FindStalePending(ctx, cutoff, true, s.batchSize)
	if err != nil {
		s.logger.Error("failed to list stale invoiced payments", "error", err)
		return
	}

	for _, payment := range stale {
		result, err := s.reconcile.SyncByInvoiceID(ctx, *payment.InvoiceID)
		if err != nil {
			s.logger.Error("failed to reconcile stale payment",
				"payment_id", payment.ID,
				"invoice_id", *payment.InvoiceID,
				"error", err,
			)
			continue
		}
		if result.Changed {
			s.logger.Info("sweeper settled stale payment",
				"payment_id", payment.ID,
				"status", result.Status,
			)
		}
	}
}

func (s *Sweeper) releaseAbandoned(ctx context.Context, cutoff time.Time) {
	stale, err := s.store.Payments().FindStalePending(ctx, cutoff, false, s.batchSize)
	if err != nil {
		s.logger.Error("failed to list invoice-less stale payments", "error", err)
		return
	}

	for _, payment := range stale {
		if err := s.registrations.ReleaseAbandoned(ctx, payment.ID); err != nil {
			s.logger.Error("failed to release abandoned registration",
				"payment_id", payment.ID,
				"registration_id", payment.RegistrationID,
				"error", err,
			)
			continue
		}
		s.logger.Info("sweeper released abandoned registration",
			"payment_id", payment.ID,
			"registration_id", payment.RegistrationID,
		)
	}
}
