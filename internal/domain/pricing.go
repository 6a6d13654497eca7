package domain

// Quote is the result of price calculation for a registration.
type Quote struct {
	FinalPriceCents int64
	DiscountCents   int64
}

// CalculatePrice applies an optional promo code to a base price. A nil or
// inactive promo leaves the price untouched. Percentage discounts are computed
// against the base price; fixed discounts subtract the code's value directly.
// The final price never goes below zero.
func CalculatePrice(basePriceCents int64, promo *PromoCode) Quote {
	if basePriceCents < 0 {
		basePriceCents = 0
	}
	if promo == nil || !promo.IsActive {
		return Quote{FinalPriceCents: basePriceCents}
	}

	var discount int64
	switch promo.DiscountType {
	case DiscountPercentage:
		discount = basePriceCents * promo.DiscountValue / 100
	case DiscountAmount:
		discount = promo.DiscountValue
	}

	final := basePriceCents - discount
	if final < 0 {
		final = 0
	}
	return Quote{FinalPriceCents: final, DiscountCents: discount}
}
