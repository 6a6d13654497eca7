package services

import (
	"context"
	"time"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/domain"
)

// PromoLedger enforces promo-code eligibility and usage-count bounds.
// Validation never consumes usage; Redeem is called exactly once per
// successful settlement and Reverse exactly once per refund.
type PromoLedger struct {
	store application.Store
	now   func() time.Time
}

func NewPromoLedger(store application.Store) *PromoLedger {
	return &PromoLedger{store: store, now: time.Now}
}

// Validate resolves a code and checks eligibility for the given event. It
// returns domain.ErrPromoNotFound for unknown codes and an error wrapping
// domain.ErrPromoInvalid for ineligible ones.
func (l *PromoLedger) Validate(ctx context.Context, code, eventID string) (*domain.PromoCode, error) {
	promo, err := l.store.PromoCodes().FindByCode(ctx, domain.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if err := promo.EligibleFor(eventID, l.now()); err != nil {
		return nil, err
	}
	return promo, nil
}

// Redeem atomically increments the usage counter, bounded by the usage limit.
func (l *PromoLedger) Redeem(ctx context.Context, promoCodeID string) error {
	return l.store.PromoCodes().Redeem(ctx, promoCodeID)
}

// Reverse atomically decrements the usage counter, clamped at zero. Calling
// it for a payment that never redeemed the code silently clamps rather than
// erroring; callers must invoke it at most once per settled-then-refunded
// payment.
func (l *PromoLedger) Reverse(ctx context.Context, promoCodeID string) error {
	return l.store.PromoCodes().Reverse(ctx, promoCodeID)
}
