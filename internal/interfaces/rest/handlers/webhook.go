package handlers

import (
	"io"
	"net/http"

	"github.com/okhomenko/eventgate/internal/interfaces/rest"
)

// PaymentWebhook handles POST /api/v1/webhooks/payment. The raw body is
// passed through untouched: signature verification and the payload snapshot
// both need the exact bytes the provider sent.
//
// Response codes drive the provider's retry behavior: 2xx acknowledges, 400
// tells it the payload will never parse, 409 flags a conflicting replay, and
// 5xx asks for a retry.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		rest.WriteErrorCode(w, http.StatusBadRequest, "VALIDATION_ERROR", "unreadable request body")
		return
	}

	result, err := h.webhooks.Process(r.Context(), body, r.Header.Get("X-Sign"))
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]any{"processed": result.Changed})
}
