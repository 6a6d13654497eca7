package gateway_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/application/services/testhelpers"
	"github.com/okhomenko/eventgate/internal/config"
	"github.com/okhomenko/eventgate/internal/infrastructure/gateway"
)

func retryConfig(maxRetries int32) config.RetryConfig {
	return config.RetryConfig{
		BaseDelay:  0,
		MaxRetries: maxRetries,
	}
}

func TestRetryGatewayClient_CreateInvoice_Success(t *testing.T) {
	mockClient := &testhelpers.MockPaymentGateway{}
	retryClient := gateway.NewRetryGatewayClient(mockClient, retryConfig(3))

	req := application.CreateInvoiceRequest{
		AmountCents: 90000,
		Currency:    "UAH",
		Description: "GopherCon Kyiv",
	}

	expectedResp := &application.CreateInvoiceResponse{
		InvoiceID:   "inv-123",
		PaymentLink: "https://pay.example.com/inv-123",
	}

	mockClient.On("CreateInvoice", mock.Anything, req).Return(expectedResp, nil).Once()

	resp, err := retryClient.CreateInvoice(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, expectedResp, resp)
	mockClient.AssertExpectations(t)
}

func TestRetryGatewayClient_CreateInvoice_RetriesOn5xx(t *testing.T) {
	mockClient := &testhelpers.MockPaymentGateway{}
	retryClient := gateway.NewRetryGatewayClient(mockClient, retryConfig(3))

	req := application.CreateInvoiceRequest{
		AmountCents: 90000,
		Currency:    "UAH",
	}

	expectedResp := &application.CreateInvoiceResponse{InvoiceID: "inv-123"}

	// First two calls fail with 500
	mockClient.On("CreateInvoice", mock.Anything, req).
		Return(nil, &application.GatewayError{
			Code:       "internal_error",
			Message:    "Internal server error",
			StatusCode: 500,
		}).
		Twice()

	// Third call succeeds
	mockClient.On("CreateInvoice", mock.Anything, req).
		Return(expectedResp, nil).
		Once()

	resp, err := retryClient.CreateInvoice(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, expectedResp, resp)
	mockClient.AssertExpectations(t)
}

func TestRetryGatewayClient_CreateInvoice_DoesNotRetryOn4xx(t *testing.T) {
	mockClient := &testhelpers.MockPaymentGateway{}
	retryClient := gateway.NewRetryGatewayClient(mockClient, retryConfig(3))

	req := application.CreateInvoiceRequest{
		AmountCents: 90000,
		Currency:    "UAH",
	}

	expectedErr := &application.GatewayError{
		Code:       "invalid_amount",
		Message:    "amount must be positive",
		StatusCode: 400,
	}

	// Should only be called once (no retry on 4xx)
	mockClient.On("CreateInvoice", mock.Anything, req).Return(nil, expectedErr).Once()

	resp, err := retryClient.CreateInvoice(context.Background(), req)

	require.Error(t, err)
	assert.Nil(t, resp)

	gwErr, ok := application.IsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, expectedErr.Code, gwErr.Code)
	mockClient.AssertExpectations(t)
}

func TestRetryGatewayClient_CancelInvoice_ExhaustsRetries(t *testing.T) {
	mockClient := &testhelpers.MockPaymentGateway{}
	retryClient := gateway.NewRetryGatewayClient(mockClient, retryConfig(3))

	req := application.CancelInvoiceRequest{
		InvoiceID:   "inv-123",
		AmountCents: 90000,
	}

	// All 3 attempts fail
	mockClient.On("CancelInvoice", mock.Anything, req).
		Return(nil, &application.GatewayError{
			Code:       "internal_error",
			Message:    "Internal server error",
			StatusCode: 500,
		}).
		Times(3)

	resp, err := retryClient.CancelInvoice(context.Background(), req)

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "maximum retries exceeded")
	mockClient.AssertExpectations(t)
}

func TestRetryGatewayClient_RetriesOnTimeout(t *testing.T) {
	mockClient := &testhelpers.MockPaymentGateway{}
	retryClient := gateway.NewRetryGatewayClient(mockClient, retryConfig(2))

	mockClient.On("InvoiceStatus", mock.Anything, "inv-123").
		Return(nil, &application.GatewayError{Code: "timeout", Timeout: true}).
		Once()
	mockClient.On("InvoiceStatus", mock.Anything, "inv-123").
		Return(&application.InvoiceStatusResponse{
			InvoiceID: "inv-123",
			Status:    application.ProviderSuccess,
		}, nil).
		Once()

	resp, err := retryClient.InvoiceStatus(context.Background(), "inv-123")

	require.NoError(t, err)
	assert.Equal(t, application.ProviderSuccess, resp.Status)
	mockClient.AssertExpectations(t)
}

func TestRetryGatewayClient_RespectsContextCancellation(t *testing.T) {
	mockClient := &testhelpers.MockPaymentGateway{}
	retryClient := gateway.NewRetryGatewayClient(mockClient, config.RetryConfig{
		BaseDelay:  1,
		MaxRetries: 10,
	})

	// First call fails
	mockClient.On("InvoiceStatus", mock.Anything, "inv-123").
		Return(nil, &application.GatewayError{
			Code:       "internal_error",
			StatusCode: 500,
		}).
		Once()

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after first failure
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	resp, err := retryClient.InvoiceStatus(ctx, "inv-123")

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, context.Canceled, err)
}
