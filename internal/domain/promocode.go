package domain

import (
	"fmt"
	"strings"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountAmount     DiscountType = "AMOUNT"
)

// PromoCode is a limited-usage discount code, optionally scoped to one event.
// UsedCount moves only at settlement (redeem) and refund (reverse), never at
// validation time.
type PromoCode struct {
	ID            string
	Code          string
	DiscountType  DiscountType
	DiscountValue int64
	UsageLimit    int
	UsedCount     int
	IsActive      bool
	ExpiresAt     *time.Time
	EventID       *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeCode upper-cases and trims a user-supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EligibleFor checks activity, expiry, remaining usage and event scoping.
// The returned error wraps ErrPromoInvalid.
func (p *PromoCode) EligibleFor(eventID string, now time.Time) error {
	if !p.IsActive {
		return fmt.Errorf("%w: code %s is inactive", ErrPromoInvalid, p.Code)
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return fmt.Errorf("%w: code %s has expired", ErrPromoInvalid, p.Code)
	}
	if p.UsedCount >= p.UsageLimit {
		return fmt.Errorf("%w: code %s usage limit reached", ErrPromoInvalid, p.Code)
	}
	if p.EventID != nil && *p.EventID != eventID {
		return fmt.Errorf("%w: code %s is not valid for this event", ErrPromoInvalid, p.Code)
	}
	return nil
}
