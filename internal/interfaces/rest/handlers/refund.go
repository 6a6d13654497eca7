package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okhomenko/eventgate/internal/application/services"
	"github.com/okhomenko/eventgate/internal/interfaces/rest"
)

type refundRequest struct {
	AmountCents *int64 `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}

type refundResponse struct {
	PaymentID           string  `json:"payment_id"`
	Status              string  `json:"status"`
	RefundRef           *string `json:"refund_ref,omitempty"`
	RefundedAmountCents *int64  `json:"refunded_amount_cents,omitempty"`
}

// Refund handles POST /api/v1/payments/{id}/refund. Omitting amount_cents
// refunds the full payment.
func (h *Handlers) Refund(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req refundRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body: "+err.Error())
		return
	}

	payment, err := h.refunds.Refund(r.Context(), services.RefundCommand{
		PaymentID:   id,
		AmountCents: req.AmountCents,
		ExternalRef: req.ExternalRef,
	})
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, refundResponse{
		PaymentID:           payment.ID,
		Status:              string(payment.Status),
		RefundRef:           payment.RefundRef,
		RefundedAmountCents: payment.RefundedAmountCents,
	})
}
