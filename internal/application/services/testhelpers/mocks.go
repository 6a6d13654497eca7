package testhelpers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/okhomenko/eventgate/internal/application"
)

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateInvoice(ctx context.Context, req application.CreateInvoiceRequest) (*application.CreateInvoiceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CreateInvoiceResponse), args.Error(1)
}

func (m *MockPaymentGateway) CancelInvoice(ctx context.Context, req application.CancelInvoiceRequest) (*application.CancelInvoiceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CancelInvoiceResponse), args.Error(1)
}

func (m *MockPaymentGateway) InvoiceStatus(ctx context.Context, invoiceID string) (*application.InvoiceStatusResponse, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.InvoiceStatusResponse), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) RegistrationConfirmed(ctx context.Context, notice application.ConfirmationNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

func (m *MockNotifier) PaymentFailed(ctx context.Context, notice application.FailureNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}
