package services_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/application/services"
	"github.com/okhomenko/eventgate/internal/application/services/testhelpers"
	"github.com/okhomenko/eventgate/internal/domain"
)

// passVerifier accepts any signature; signature behavior is covered by the
// gateway package tests.
type passVerifier struct{}

func (passVerifier) Verify(body []byte, signature string) error { return nil }
func (passVerifier) Bypassed() bool                             { return true }

type SettlementTestSuite struct {
	suite.Suite
	store        *testhelpers.FakeStore
	mockNotifier *testhelpers.MockNotifier
	settlement   *services.SettlementService
	processor    *services.WebhookProcessor

	event   domain.Event
	reg     domain.Registration
	payment domain.Payment
	promo   domain.PromoCode
}

func TestSettlementSuite(t *testing.T) {
	suite.Run(t, new(SettlementTestSuite))
}

func (suite *SettlementTestSuite) SetupTest() {
	suite.store = testhelpers.NewFakeStore()
	suite.mockNotifier = &testhelpers.MockNotifier{}
	suite.mockNotifier.On("RegistrationConfirmed", mock.Anything, mock.Anything).Return(nil)
	suite.mockNotifier.On("PaymentFailed", mock.Anything, mock.Anything).Return(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.settlement = services.NewSettlementService(suite.store, suite.mockNotifier, logger)
	suite.processor = services.NewWebhookProcessor(suite.settlement, passVerifier{}, logger)

	suite.event = testhelpers.DefaultEvent()
	suite.promo = testhelpers.ActivePromo("SUMMER10", 10, 5)
	suite.reg = testhelpers.PendingRegistration(suite.event.ID)
	code := suite.promo.Code
	promoID := suite.promo.ID
	suite.reg.PromoCode = &code
	suite.reg.PromoCodeID = &promoID
	suite.payment = testhelpers.PendingPaymentWithInvoice(suite.reg.ID, "inv-100")

	suite.store.SeedEvent(suite.event)
	suite.store.SeedPromoCode(suite.promo)
	suite.store.SeedRegistration(suite.reg)
	suite.store.SeedPayment(suite.payment)
}

func webhookBody(t *testing.T, invoiceID string, status application.ProviderStatus) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"invoiceId": invoiceID,
		"status":    status,
		"paymentId": "prov-555",
	})
	require.NoError(t, err)
	return body
}

func (suite *SettlementTestSuite) Test_SuccessWebhook_SettlesOnce() {
	ctx := context.Background()
	body := webhookBody(suite.T(), "inv-100", application.ProviderSuccess)

	result, err := suite.processor.Process(ctx, body, "")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Changed)

	payment, err := suite.store.Payments().FindByInvoiceID(ctx, "inv-100")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusCompleted, payment.Status)
	assert.Equal(suite.T(), "prov-555", *payment.ProviderPaymentID)
	assert.Equal(suite.T(), body, payment.WebhookPayload)

	reg, err := suite.store.Registrations().FindByID(ctx, suite.reg.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.RegistrationConfirmed, reg.Status)
	assert.Equal(suite.T(), domain.RegPaymentCompleted, reg.PaymentStatus)

	promo, err := suite.store.PromoCodes().FindByID(ctx, suite.promo.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, promo.UsedCount)

	suite.mockNotifier.AssertNumberOfCalls(suite.T(), "RegistrationConfirmed", 1)
}

func (suite *SettlementTestSuite) Test_SuccessWebhook_ReplayIsNoOp() {
	ctx := context.Background()
	body := webhookBody(suite.T(), "inv-100", application.ProviderSuccess)

	first, err := suite.processor.Process(ctx, body, "")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), first.Changed)

	second, err := suite.processor.Process(ctx, body, "")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), second.Changed)

	promo, err := suite.store.PromoCodes().FindByID(ctx, suite.promo.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, promo.UsedCount)

	suite.mockNotifier.AssertNumberOfCalls(suite.T(), "RegistrationConfirmed", 1)
}

func (suite *SettlementTestSuite) Test_FailureWebhook_KeepsRegistrationRetryable() {
	ctx := context.Background()
	body := webhookBody(suite.T(), "inv-100", application.ProviderFailure)

	result, err := suite.processor.Process(ctx, body, "")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Changed)

	payment, err := suite.store.Payments().FindByInvoiceID(ctx, "inv-100")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusFailed, payment.Status)

	reg, err := suite.store.Registrations().FindByID(ctx, suite.reg.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.RegistrationPending, reg.Status)
	assert.Equal(suite.T(), domain.RegPaymentFailed, reg.PaymentStatus)

	// No redemption on failure.
	promo, err := suite.store.PromoCodes().FindByID(ctx, suite.promo.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, promo.UsedCount)

	suite.mockNotifier.AssertNumberOfCalls(suite.T(), "PaymentFailed", 1)
	notice := suite.mockNotifier.Calls[0].Arguments.Get(1).(application.FailureNotice)
	assert.Equal(suite.T(), *suite.payment.PaymentLink, notice.RetryLink)
}

func (suite *SettlementTestSuite) Test_FailureThenSuccess_SuccessApplies() {
	ctx := context.Background()

	_, err := suite.processor.Process(ctx, webhookBody(suite.T(), "inv-100", application.ProviderFailure), "")
	require.NoError(suite.T(), err)

	result, err := suite.processor.Process(ctx, webhookBody(suite.T(), "inv-100", application.ProviderSuccess), "")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Changed)

	payment, err := suite.store.Payments().FindByInvoiceID(ctx, "inv-100")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusCompleted, payment.Status)

	reg, err := suite.store.Registrations().FindByID(ctx, suite.reg.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.RegistrationConfirmed, reg.Status)
}

func (suite *SettlementTestSuite) Test_SuccessThenFailure_RejectedAsConflict() {
	ctx := context.Background()

	_, err := suite.processor.Process(ctx, webhookBody(suite.T(), "inv-100", application.ProviderSuccess), "")
	require.NoError(suite.T(), err)

	_, err = suite.processor.Process(ctx, webhookBody(suite.T(), "inv-100", application.ProviderFailure), "")
	assert.ErrorIs(suite.T(), err, domain.ErrConflictingSettlement)

	payment, err := suite.store.Payments().FindByInvoiceID(ctx, "inv-100")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusCompleted, payment.Status)

	promo, err := suite.store.PromoCodes().FindByID(ctx, suite.promo.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, promo.UsedCount)
}

func (suite *SettlementTestSuite) Test_ExpiredMapsToFailure() {
	ctx := context.Background()

	result, err := suite.processor.Process(ctx, webhookBody(suite.T(), "inv-100", application.ProviderExpired), "")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Changed)

	payment, err := suite.store.Payments().FindByInvoiceID(ctx, "inv-100")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusFailed, payment.Status)
}

func (suite *SettlementTestSuite) Test_NonTerminalStatus_NoOp() {
	ctx := context.Background()

	for _, status := range []application.ProviderStatus{
		application.ProviderCreated, application.ProviderProcessing, application.ProviderHold,
	} {
		result, err := suite.processor.Process(ctx, webhookBody(suite.T(), "inv-100", status), "")
		require.NoError(suite.T(), err)
		assert.False(suite.T(), result.Changed)
	}

	payment, err := suite.store.Payments().FindByInvoiceID(ctx, "inv-100")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusPending, payment.Status)
}

func (suite *SettlementTestSuite) Test_UnknownInvoice_NotFound() {
	_, err := suite.processor.Process(context.Background(),
		webhookBody(suite.T(), "inv-ghost", application.ProviderSuccess), "")
	assert.ErrorIs(suite.T(), err, application.ErrPaymentNotFound)
}

func (suite *SettlementTestSuite) Test_MalformedPayloadRejected() {
	for _, body := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"status":"success"}`),
		[]byte(`{"invoiceId":"inv-100","status":"teleported"}`),
	} {
		_, err := suite.processor.Process(context.Background(), body, "")
		svcErr, ok := application.IsServiceError(err)
		require.True(suite.T(), ok, "body %q", body)
		assert.Equal(suite.T(), application.ErrCodeValidation, svcErr.Code)
	}

	payment, err := suite.store.Payments().FindByInvoiceID(context.Background(), "inv-100")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusPending, payment.Status)
}

func (suite *SettlementTestSuite) Test_ExhaustedPromoDoesNotBlockSettlement() {
	ctx := context.Background()

	exhausted := suite.promo
	exhausted.UsedCount = exhausted.UsageLimit
	suite.store.SeedPromoCode(exhausted)

	result, err := suite.processor.Process(ctx, webhookBody(suite.T(), "inv-100", application.ProviderSuccess), "")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Changed)

	promo, err := suite.store.PromoCodes().FindByID(ctx, suite.promo.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), promo.UsageLimit, promo.UsedCount)
}

func TestPromoLedger_ReverseNeverGoesNegative(t *testing.T) {
	store := testhelpers.NewFakeStore()
	ledger := services.NewPromoLedger(store)
	promo := testhelpers.ActivePromo("CLAMP", 10, 3)
	promo.UsedCount = 1
	store.SeedPromoCode(promo)

	ctx := context.Background()
	require.NoError(t, ledger.Reverse(ctx, promo.ID))
	require.NoError(t, ledger.Reverse(ctx, promo.ID))
	require.NoError(t, ledger.Reverse(ctx, promo.ID))

	saved, err := store.PromoCodes().FindByID(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.UsedCount)
}

func TestPromoLedger_RedeemBoundedByLimit(t *testing.T) {
	store := testhelpers.NewFakeStore()
	ledger := services.NewPromoLedger(store)
	promo := testhelpers.ActivePromo("LIMIT2", 10, 2)
	store.SeedPromoCode(promo)

	ctx := context.Background()
	require.NoError(t, ledger.Redeem(ctx, promo.ID))
	require.NoError(t, ledger.Redeem(ctx, promo.ID))
	assert.ErrorIs(t, ledger.Redeem(ctx, promo.ID), domain.ErrPromoExhausted)

	saved, err := store.PromoCodes().FindByID(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.UsedCount)

	assert.ErrorIs(t, ledger.Redeem(ctx, "promo-ghost"), domain.ErrPromoNotFound)
}

func TestPromoLedger_ValidateDoesNotConsumeUsage(t *testing.T) {
	store := testhelpers.NewFakeStore()
	ledger := services.NewPromoLedger(store)
	promo := testhelpers.ActivePromo("CHECKME", 15, 5)
	store.SeedPromoCode(promo)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		resolved, err := ledger.Validate(ctx, "checkme", "evt-1")
		require.NoError(t, err)
		assert.Equal(t, promo.ID, resolved.ID)
	}

	saved, err := store.PromoCodes().FindByID(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.UsedCount)
}
