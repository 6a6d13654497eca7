package services

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"context"

	"github.com/go-playground/validator"
	"github.com/okhomenko/eventgate/internal/application"
)

// WebhookPayload is the provider's settlement notification body.
type WebhookPayload struct {
	InvoiceID    string                     `json:"invoiceId" validate:"required"`
	Status       application.ProviderStatus `json:"status" validate:"required,oneof=created processing success failure expired hold"`
	PaymentID    string                     `json:"paymentId,omitempty"`
	AmountCents  int64                      `json:"amount,omitempty"`
	MerchantData *application.MerchantData  `json:"merchantData,omitempty"`
}

// WebhookProcessor verifies and parses inbound provider webhooks and feeds
// terminal statuses through the shared settlement transition. Delivery is
// at-least-once; duplicates of an applied terminal status are accepted as
// no-ops.
type WebhookProcessor struct {
	settlement *SettlementService
	verifier   application.SignatureVerifier
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewWebhookProcessor(
	settlement *SettlementService,
	verifier application.SignatureVerifier,
	logger *slog.Logger,
) *WebhookProcessor {
	return &WebhookProcessor{
		settlement: settlement,
		verifier:   verifier,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Process handles one webhook delivery. The signature is verified over the
// raw body exactly as delivered; malformed or badly signed payloads are
// rejected before any state is touched. Non-terminal statuses are accepted
// and ignored.
func (p *WebhookProcessor) Process(ctx context.Context, rawBody []byte, signature string) (*SettlementResult, error) {
	if err := p.verifier.Verify(rawBody, signature); err != nil {
		return nil, application.NewBadSignatureError(err)
	}

	var payload WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, application.NewValidationError(fmt.Errorf("malformed webhook payload: %w", err))
	}
	if err := p.validate.Struct(payload); err != nil {
		return nil, application.NewValidationError(err)
	}

	success, terminal := MapProviderStatus(payload.Status)
	if !terminal {
		p.logger.Debug("ignoring non-terminal webhook status",
			"invoice_id", payload.InvoiceID,
			"status", payload.Status,
		)
		return &SettlementResult{Changed: false}, nil
	}

	return p.settlement.Settle(ctx, payload.InvoiceID, TerminalOutcome{
		Success:           success,
		ProviderPaymentID: payload.PaymentID,
		Payload:           rawBody,
	})
}
