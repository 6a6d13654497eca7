package postgres

import "time"

// Database representations. Status columns stay plain strings; the mappers
// own the conversion to domain types.

type EventModel struct {
	ID              string
	Title           string
	BasePriceCents  int64
	Currency        string
	Capacity        int
	RegisteredCount int
	Date            time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type RegistrationModel struct {
	ID              string
	EventID         string
	UserID          *string
	Email           string
	FullName        string
	Phone           string
	PromoCode       *string
	PromoCodeID     *string
	Status          string
	PaymentStatus   string
	FinalPriceCents int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PaymentModel struct {
	ID                  string
	RegistrationID      string
	AmountCents         int64
	Currency            string
	Status              string
	InvoiceID           *string
	ProviderPaymentID   *string
	PaymentLink         *string
	WebhookPayload      []byte
	RefundRef           *string
	RefundedAmountCents *int64
	CreatedAt           time.Time
	CompletedAt         *time.Time
	FailedAt            *time.Time
	RefundedAt          *time.Time
	UpdatedAt           time.Time
}

type PromoCodeModel struct {
	ID            string
	Code          string
	DiscountType  string
	DiscountValue int64
	UsageLimit    int
	UsedCount     int
	IsActive      bool
	ExpiresAt     *time.Time
	EventID       *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
