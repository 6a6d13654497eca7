package handlers

import (
	"net/http"

	"github.com/okhomenko/eventgate/internal/domain"
	"github.com/okhomenko/eventgate/internal/interfaces/rest"
)

type promoPreviewResponse struct {
	Code            string `json:"code"`
	DiscountType    string `json:"discount_type"`
	DiscountValue   int64  `json:"discount_value"`
	BasePriceCents  int64  `json:"base_price_cents"`
	DiscountCents   int64  `json:"discount_cents"`
	FinalPriceCents int64  `json:"final_price_cents"`
}

// ValidatePromoCode handles GET /api/v1/promo-codes/validate. It previews
// the discount without consuming a usage; the ledger only moves at
// settlement.
func (h *Handlers) ValidatePromoCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	eventID := r.URL.Query().Get("event_id")
	if code == "" || eventID == "" {
		rest.WriteErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "code and event_id query parameters are required")
		return
	}

	promo, err := h.ledger.Validate(r.Context(), code, eventID)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	event, err := h.store.Events().FindByID(r.Context(), eventID)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	quote := domain.CalculatePrice(event.BasePriceCents, promo)
	rest.WriteJSON(w, http.StatusOK, promoPreviewResponse{
		Code:            promo.Code,
		DiscountType:    string(promo.DiscountType),
		DiscountValue:   promo.DiscountValue,
		BasePriceCents:  event.BasePriceCents,
		DiscountCents:   quote.DiscountCents,
		FinalPriceCents: quote.FinalPriceCents,
	})
}
