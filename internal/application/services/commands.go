package services

// CreateRegistrationCommand carries the public registration form.
type CreateRegistrationCommand struct {
	EventID   string
	Email     string
	FullName  string
	Phone     string
	UserID    *string
	PromoCode string
}

// RefundCommand requests a refund of a settled payment. A nil AmountCents
// refunds the full payment amount.
type RefundCommand struct {
	PaymentID   string
	AmountCents *int64
	ExternalRef string
}

// Actor identifies the authenticated caller for ownership checks.
type Actor struct {
	Subject string
	Email   string
	Admin   bool
}
