package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/application/services"
	"github.com/okhomenko/eventgate/internal/application/services/testhelpers"
	"github.com/okhomenko/eventgate/internal/domain"
)

type RefundServiceTestSuite struct {
	suite.Suite
	store       *testhelpers.FakeStore
	mockGateway *testhelpers.MockPaymentGateway
	service     *services.RefundService

	event   domain.Event
	reg     domain.Registration
	payment domain.Payment
	promo   domain.PromoCode
}

func TestRefundServiceSuite(t *testing.T) {
	suite.Run(t, new(RefundServiceTestSuite))
}

func (suite *RefundServiceTestSuite) SetupTest() {
	suite.store = testhelpers.NewFakeStore()
	suite.mockGateway = &testhelpers.MockPaymentGateway{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.service = services.NewRefundService(suite.store, suite.mockGateway, 30*time.Second, logger)

	suite.event = testhelpers.DefaultEvent()
	suite.event.RegisteredCount = 1
	suite.promo = testhelpers.ActivePromo("SUMMER10", 10, 5)
	suite.promo.UsedCount = 1

	suite.reg = testhelpers.PendingRegistration(suite.event.ID)
	suite.reg.Status = domain.RegistrationConfirmed
	suite.reg.PaymentStatus = domain.RegPaymentCompleted
	promoID := suite.promo.ID
	suite.reg.PromoCodeID = &promoID

	suite.payment = testhelpers.PendingPaymentWithInvoice(suite.reg.ID, "inv-200")
	completedAt := time.Now().Add(-time.Hour)
	provID := "prov-200"
	suite.payment.Status = domain.StatusCompleted
	suite.payment.CompletedAt = &completedAt
	suite.payment.ProviderPaymentID = &provID

	suite.store.SeedEvent(suite.event)
	suite.store.SeedPromoCode(suite.promo)
	suite.store.SeedRegistration(suite.reg)
	suite.store.SeedPayment(suite.payment)
}

func (suite *RefundServiceTestSuite) Test_Refund_Success() {
	ctx := context.Background()

	suite.mockGateway.On("CancelInvoice", mock.Anything, application.CancelInvoiceRequest{
		InvoiceID:   "inv-200",
		AmountCents: suite.payment.AmountCents,
	}).Return(&application.CancelInvoiceResponse{RefundRef: "ref-42", Status: "reversed"}, nil)

	refunded, err := suite.service.Refund(ctx, services.RefundCommand{PaymentID: suite.payment.ID})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), domain.StatusRefunded, refunded.Status)
	assert.Equal(suite.T(), "ref-42", *refunded.RefundRef)
	assert.Equal(suite.T(), suite.payment.AmountCents, *refunded.RefundedAmountCents)

	// Ledger usage is handed back.
	promo, err := suite.store.PromoCodes().FindByID(ctx, suite.promo.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, promo.UsedCount)

	// Refund does not free the seat or cancel the registration.
	ev, err := suite.store.Events().FindByID(ctx, suite.event.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, ev.RegisteredCount)

	reg, err := suite.store.Registrations().FindByID(ctx, suite.reg.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.RegistrationConfirmed, reg.Status)
}

func (suite *RefundServiceTestSuite) Test_Refund_PartialAmount() {
	ctx := context.Background()
	partial := int64(40000)

	suite.mockGateway.On("CancelInvoice", mock.Anything, application.CancelInvoiceRequest{
		InvoiceID:   "inv-200",
		AmountCents: partial,
	}).Return(&application.CancelInvoiceResponse{RefundRef: "ref-43", Status: "reversed"}, nil)

	refunded, err := suite.service.Refund(ctx, services.RefundCommand{
		PaymentID:   suite.payment.ID,
		AmountCents: &partial,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), partial, *refunded.RefundedAmountCents)
}

func (suite *RefundServiceTestSuite) Test_Refund_RejectedForUnsettledPayment() {
	ctx := context.Background()

	for _, status := range []domain.PaymentStatus{domain.StatusPending, domain.StatusFailed} {
		payment := testhelpers.PendingPaymentWithInvoice(suite.reg.ID, "inv-"+string(status))
		payment.Status = status
		suite.store.SeedPayment(payment)

		_, err := suite.service.Refund(ctx, services.RefundCommand{PaymentID: payment.ID})
		assert.ErrorIs(suite.T(), err, domain.ErrRefundNotAllowed)

		saved, err := suite.store.Payments().FindByID(ctx, payment.ID)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), status, saved.Status)
	}

	suite.mockGateway.AssertNotCalled(suite.T(), "CancelInvoice", mock.Anything, mock.Anything)
}

func (suite *RefundServiceTestSuite) Test_Refund_DoubleRefundRejected() {
	ctx := context.Background()

	suite.mockGateway.On("CancelInvoice", mock.Anything, mock.Anything).
		Return(&application.CancelInvoiceResponse{RefundRef: "ref-42", Status: "reversed"}, nil)

	_, err := suite.service.Refund(ctx, services.RefundCommand{PaymentID: suite.payment.ID})
	require.NoError(suite.T(), err)

	_, err = suite.service.Refund(ctx, services.RefundCommand{PaymentID: suite.payment.ID})
	assert.ErrorIs(suite.T(), err, domain.ErrRefundNotAllowed)

	// The ledger reversal must not run twice.
	promo, err := suite.store.PromoCodes().FindByID(ctx, suite.promo.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, promo.UsedCount)
}

func (suite *RefundServiceTestSuite) Test_Refund_GatewayFailureLeavesStateUntouched() {
	ctx := context.Background()

	gwErr := &application.GatewayError{Code: "internal_error", Message: "provider down", StatusCode: 500}
	suite.mockGateway.On("CancelInvoice", mock.Anything, mock.Anything).Return(nil, gwErr)

	_, err := suite.service.Refund(ctx, services.RefundCommand{PaymentID: suite.payment.ID})
	require.Error(suite.T(), err)

	saved, err := suite.store.Payments().FindByID(ctx, suite.payment.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusCompleted, saved.Status)

	promo, err := suite.store.PromoCodes().FindByID(ctx, suite.promo.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, promo.UsedCount)
}

func (suite *RefundServiceTestSuite) Test_Refund_AmountOutOfRange() {
	ctx := context.Background()
	tooMuch := suite.payment.AmountCents + 1

	_, err := suite.service.Refund(ctx, services.RefundCommand{
		PaymentID:   suite.payment.ID,
		AmountCents: &tooMuch,
	})
	assert.ErrorIs(suite.T(), err, domain.ErrInvalidAmount)
	suite.mockGateway.AssertNotCalled(suite.T(), "CancelInvoice", mock.Anything, mock.Anything)
}

func (suite *RefundServiceTestSuite) Test_Refund_UnknownPayment() {
	_, err := suite.service.Refund(context.Background(), services.RefundCommand{PaymentID: "pay-ghost"})
	assert.ErrorIs(suite.T(), err, application.ErrPaymentNotFound)
}
