package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T) *Payment {
	t.Helper()
	money, err := NewMoney(1000, "UAH")
	require.NoError(t, err)
	p, err := NewPayment("pay-1", "reg-1", money)
	require.NoError(t, err)
	return p
}

func TestNewPayment_Validation(t *testing.T) {
	money, err := NewMoney(1000, "UAH")
	require.NoError(t, err)

	_, err = NewPayment("", "reg-1", money)
	assert.ErrorIs(t, err, ErrMissingRequiredField)

	_, err = NewPayment("pay-1", "", money)
	assert.ErrorIs(t, err, ErrMissingRequiredField)

	_, err = NewMoney(-1, "UAH")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPayment_CompleteFromPending(t *testing.T) {
	p := newTestPayment(t)
	now := time.Now()

	require.NoError(t, p.Complete("prov-123", []byte(`{"status":"success"}`), now))

	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, "prov-123", *p.ProviderPaymentID)
	assert.Equal(t, []byte(`{"status":"success"}`), p.WebhookPayload)
	assert.True(t, p.IsSettled())
}

func TestPayment_CompleteAfterFailed(t *testing.T) {
	// A late success webhook must still settle a payment that was marked
	// failed by an earlier delivery.
	p := newTestPayment(t)
	require.NoError(t, p.Fail(nil, time.Now()))

	require.NoError(t, p.Complete("prov-123", nil, time.Now()))
	assert.Equal(t, StatusCompleted, p.Status)
}

func TestPayment_RefundOnlyFromCompleted(t *testing.T) {
	now := time.Now()

	pending := newTestPayment(t)
	assert.ErrorIs(t, pending.Refund("ref-1", 1000, now), ErrRefundNotAllowed)
	assert.Equal(t, StatusPending, pending.Status)

	failed := newTestPayment(t)
	require.NoError(t, failed.Fail(nil, now))
	assert.ErrorIs(t, failed.Refund("ref-1", 1000, now), ErrRefundNotAllowed)
	assert.Equal(t, StatusFailed, failed.Status)

	completed := newTestPayment(t)
	require.NoError(t, completed.Complete("prov-123", nil, now))
	require.NoError(t, completed.Refund("ref-1", 1000, now))
	assert.Equal(t, StatusRefunded, completed.Status)
	assert.Equal(t, int64(1000), *completed.RefundedAmountCents)
	assert.Equal(t, "ref-1", *completed.RefundRef)
}

func TestPayment_NoTransitionsOutOfRefunded(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.Complete("prov-123", nil, time.Now()))
	require.NoError(t, p.Refund("ref-1", 1000, time.Now()))

	assert.ErrorIs(t, p.Complete("prov-456", nil, time.Now()), ErrInvalidTransition)
	assert.ErrorIs(t, p.Fail(nil, time.Now()), ErrInvalidTransition)
	assert.Equal(t, StatusRefunded, p.Status)
}

func TestPayment_FailFromCompletedIsIllegal(t *testing.T) {
	p := newTestPayment(t)
	require.NoError(t, p.Complete("prov-123", nil, time.Now()))

	assert.ErrorIs(t, p.Fail(nil, time.Now()), ErrInvalidTransition)
	assert.Equal(t, StatusCompleted, p.Status)
}
