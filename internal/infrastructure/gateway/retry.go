package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/config"
)

// RetryGatewayClient retries transient provider failures with exponential
// backoff and jitter. Client errors (4xx) are returned as-is: retrying a
// rejected request only repeats the rejection.
type RetryGatewayClient struct {
	inner      application.PaymentGateway
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGatewayClient(inner application.PaymentGateway, cfg config.RetryConfig) application.PaymentGateway {
	return &RetryGatewayClient{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryGatewayClient) CreateInvoice(ctx context.Context, req application.CreateInvoiceRequest) (*application.CreateInvoiceResponse, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.CreateInvoiceResponse, error) {
			return r.inner.CreateInvoice(ctx, req)
		},
	)
}

func (r *RetryGatewayClient) CancelInvoice(ctx context.Context, req application.CancelInvoiceRequest) (*application.CancelInvoiceResponse, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.CancelInvoiceResponse, error) {
			return r.inner.CancelInvoice(ctx, req)
		},
	)
}

func (r *RetryGatewayClient) InvoiceStatus(ctx context.Context, invoiceID string) (*application.InvoiceStatusResponse, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.InvoiceStatusResponse, error) {
			return r.inner.InvoiceStatus(ctx, invoiceID)
		},
	)
}

func retry[T any](r *RetryGatewayClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if gwErr, ok := application.IsGatewayError(err); ok {
		return gwErr.IsRetryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryGatewayClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond

	return base + jitter
}
