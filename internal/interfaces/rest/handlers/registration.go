package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okhomenko/eventgate/internal/application/services"
	"github.com/okhomenko/eventgate/internal/domain"
	"github.com/okhomenko/eventgate/internal/interfaces/rest"
	"github.com/okhomenko/eventgate/internal/interfaces/rest/middleware"
)

type createRegistrationRequest struct {
	EventID   string `json:"event_id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	PromoCode string `json:"promo_code"`
}

type registrationResponse struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	PromoCode       *string   `json:"promo_code,omitempty"`
	FinalPriceCents int64     `json:"final_price_cents"`
	PaymentLink     string    `json:"payment_link,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toRegistrationResponse(reg *domain.Registration, paymentLink string) registrationResponse {
	return registrationResponse{
		ID:              reg.ID,
		EventID:         reg.EventID,
		Email:           reg.Email,
		FullName:        reg.FullName,
		Status:          string(reg.Status),
		PaymentStatus:   string(reg.PaymentStatus),
		PromoCode:       reg.PromoCode,
		FinalPriceCents: reg.FinalPriceCents,
		PaymentLink:     paymentLink,
		CreatedAt:       reg.CreatedAt,
	}
}

// CreateRegistration handles POST /api/v1/registrations.
func (h *Handlers) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req createRegistrationRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body: "+err.Error())
		return
	}

	cmd := services.CreateRegistrationCommand{
		EventID:   req.EventID,
		Email:     req.Email,
		FullName:  req.FullName,
		Phone:     req.Phone,
		PromoCode: req.PromoCode,
	}
	if actor, ok := middleware.ActorFromContext(r.Context()); ok && actor.Subject != "" {
		subject := actor.Subject
		cmd.UserID = &subject
	}

	result, err := h.registrations.CreateRegistration(r.Context(), cmd)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, toRegistrationResponse(result.Registration, result.PaymentLink))
}

// CancelRegistration handles POST /api/v1/registrations/{id}/cancel. The
// caller must own the registration or hold the admin role.
func (h *Handlers) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		rest.WriteErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	if err := h.registrations.Cancel(r.Context(), id, actor); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(domain.RegistrationCancelled)})
}

// PaymentLink handles GET /api/v1/registrations/payment-link. It lets a
// registrant who lost the provider page resume payment by email and event.
func (h *Handlers) PaymentLink(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	eventID := r.URL.Query().Get("event_id")
	if email == "" || eventID == "" {
		rest.WriteErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "email and event_id query parameters are required")
		return
	}

	link, err := h.registrations.PaymentLinkByEmail(r.Context(), email, eventID)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]string{"payment_link": link})
}

// SyncPayment handles POST /api/v1/registrations/{id}/sync-payment, the
// manual fallback when a webhook was lost.
func (h *Handlers) SyncPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.reconcile.SyncPaymentStatus(r.Context(), id)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"changed": result.Changed,
		"status":  string(result.Status),
	})
}
