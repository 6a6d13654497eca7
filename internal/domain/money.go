package domain

import "fmt"

// Money is an amount in minor units of a single currency.
type Money struct {
	AmountCents int64
	Currency    string
}

func NewMoney(amountCents int64, currency string) (Money, error) {
	if amountCents < 0 {
		return Money{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amountCents)
	}
	if len(currency) != 3 {
		return Money{}, fmt.Errorf("%w: currency must be a 3-letter code, got %q", ErrInvalidAmount, currency)
	}
	return Money{AmountCents: amountCents, Currency: currency}, nil
}
