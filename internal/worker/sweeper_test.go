package worker_test

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
	"github.com/okhomenko/eventgate/internal/worker"
)

type SweeperTestSuite struct {
	suite.Suite
	store       *testhelpers.FakeStore
	mockGateway *testhelpers.MockPaymentGateway
	sweeper     *worker.Sweeper

	event domain.Event
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperTestSuite))
}

func (suite *SweeperTestSuite) SetupTest() {
	suite.store = testhelpers.NewFakeStore()
	suite.mockGateway = &testhelpers.MockPaymentGateway{}

	notifier := &testhelpers.MockNotifier{}
	notifier.On("RegistrationConfirmed", mock.Anything, mock.Anything).Return(nil)
	notifier.On("PaymentFailed", mock.Anything, mock.Anything).Return(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	settlement := services.NewSettlementService(suite.store, notifier, logger)
	reconcile := services.NewReconciliationService(suite.store, suite.mockGateway, settlement, 0, logger)
	ledger := services.NewPromoLedger(suite.store)
	registrations := services.NewRegistrationService(suite.store, suite.mockGateway, ledger, 0, logger)

	suite.sweeper = worker.NewSweeper(
		suite.store, reconcile, registrations,
		time.Minute, 15*time.Minute, 50, logger,
	)

	suite.event = testhelpers.DefaultEvent()
	suite.store.SeedEvent(suite.event)
}

func (suite *SweeperTestSuite) seedStale(invoiceID *string) (domain.Registration, domain.Payment) {
	reg := testhelpers.PendingRegistration(suite.event.ID)
	payment := domain.Payment{
		ID:             "pay-" + reg.ID,
		RegistrationID: reg.ID,
		AmountCents:    100000,
		Currency:       "UAH",
		Status:         domain.StatusPending,
		InvoiceID:      invoiceID,
		CreatedAt:      time.Now().Add(-time.Hour),
	}
	suite.store.SeedRegistration(reg)
	suite.store.SeedPayment(payment)
	return reg, payment
}

func (suite *SweeperTestSuite) Test_SettlesStaleInvoicedPayment() {
	invoiceID := "inv-700"
	reg, _ := suite.seedStale(&invoiceID)

	suite.mockGateway.On("InvoiceStatus", mock.Anything, "inv-700").
		Return(&application.InvoiceStatusResponse{
			InvoiceID:         "inv-700",
			Status:            application.ProviderSuccess,
			ProviderPaymentID: "prov-700",
		}, nil)

	suite.sweeper.RunOnce(context.Background())

	payment, err := suite.store.Payments().FindByInvoiceID(context.Background(), "inv-700")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusCompleted, payment.Status)

	updated, err := suite.store.Registrations().FindByID(context.Background(), reg.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.RegistrationConfirmed, updated.Status)
}

func (suite *SweeperTestSuite) Test_ReleasesAbandonedRegistration() {
	// A seat is still held by the abandoned registration.
	suite.event.RegisteredCount = 1
	suite.store.SeedEvent(suite.event)

	reg, payment := suite.seedStale(nil)

	suite.sweeper.RunOnce(context.Background())

	_, err := suite.store.Payments().FindByID(context.Background(), payment.ID)
	assert.ErrorIs(suite.T(), err, application.ErrPaymentNotFound)

	updated, err := suite.store.Registrations().FindByID(context.Background(), reg.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.RegistrationCancelled, updated.Status)

	event, err := suite.store.Events().FindByID(context.Background(), suite.event.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, event.RegisteredCount)

	suite.mockGateway.AssertNotCalled(suite.T(), "InvoiceStatus", mock.Anything, mock.Anything)
}

func (suite *SweeperTestSuite) Test_FreshPaymentsAreLeftAlone() {
	invoiceID := "inv-701"
	reg := testhelpers.PendingRegistration(suite.event.ID)
	payment := testhelpers.PendingPaymentWithInvoice(reg.ID, invoiceID)
	suite.store.SeedRegistration(reg)
	suite.store.SeedPayment(payment)

	suite.sweeper.RunOnce(context.Background())

	suite.mockGateway.AssertNotCalled(suite.T(), "InvoiceStatus", mock.Anything, mock.Anything)

	unchanged, err := suite.store.Payments().FindByInvoiceID(context.Background(), invoiceID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusPending, unchanged.Status)
}

func (suite *SweeperTestSuite) Test_GatewayErrorDoesNotStopTheSweep() {
	badInvoice := "inv-702"
	goodInvoice := "inv-703"
	suite.seedStale(&badInvoice)
	reg2 := testhelpers.PendingRegistration(suite.event.ID)
	reg2.ID = "reg-2"
	reg2.Email = "second@example.com"
	payment2 := domain.Payment{
		ID:             "pay-2",
		RegistrationID: reg2.ID,
		AmountCents:    100000,
		Currency:       "UAH",
		Status:         domain.StatusPending,
		InvoiceID:      &goodInvoice,
		CreatedAt:      time.Now().Add(-time.Hour),
	}
	suite.store.SeedRegistration(reg2)
	suite.store.SeedPayment(payment2)

	suite.mockGateway.On("InvoiceStatus", mock.Anything, badInvoice).
		Return(nil, &application.GatewayError{Code: "internal_error", StatusCode: 500})
	suite.mockGateway.On("InvoiceStatus", mock.Anything, goodInvoice).
		Return(&application.InvoiceStatusResponse{
			InvoiceID: goodInvoice,
			Status:    application.ProviderFailure,
		}, nil)

	suite.sweeper.RunOnce(context.Background())

	settled, err := suite.store.Payments().FindByInvoiceID(context.Background(), goodInvoice)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusFailed, settled.Status)
}
