// Package handlers contains the chi HTTP handlers that translate requests
// to and from the service layer.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/application/services"
	"github.com/okhomenko/eventgate/internal/infrastructure/ratelimit"
	"github.com/okhomenko/eventgate/internal/interfaces/rest"
	"github.com/okhomenko/eventgate/internal/interfaces/rest/middleware"
)

type Handlers struct {
	registrations *services.RegistrationService
	refunds       *services.RefundService
	reconcile     *services.ReconciliationService
	webhooks      *services.WebhookProcessor
	ledger        *services.PromoLedger
	store         application.Store
	logger        *slog.Logger
}

func New(
	registrations *services.RegistrationService,
	refunds *services.RefundService,
	reconcile *services.ReconciliationService,
	webhooks *services.WebhookProcessor,
	ledger *services.PromoLedger,
	store application.Store,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		registrations: registrations,
		refunds:       refunds,
		reconcile:     reconcile,
		webhooks:      webhooks,
		ledger:        ledger,
		store:         store,
		logger:        logger,
	}
}

// NewRouter builds the full route tree with the shared middleware stack.
func NewRouter(h *Handlers, auth *middleware.Authenticator, limiter *ratelimit.Limiter, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/registrations", func(r chi.Router) {
			r.With(middleware.RateLimit(limiter), auth.Optional).Post("/", h.CreateRegistration)
			r.Get("/payment-link", h.PaymentLink)
			r.Post("/{id}/sync-payment", h.SyncPayment)
			r.With(auth.Require).Post("/{id}/cancel", h.CancelRegistration)
		})

		r.Route("/payments", func(r chi.Router) {
			r.With(auth.Require).Post("/{id}/refund", h.Refund)
		})

		r.Get("/promo-codes/validate", h.ValidatePromoCode)

		r.Post("/webhooks/payment", h.PaymentWebhook)
	})

	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
