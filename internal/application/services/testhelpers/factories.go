package testhelpers

import (
	"time"

	"github.com/google/uuid"

	"github.com/okhomenko/eventgate/internal/domain"
)

// DefaultEvent returns a future-dated event with free capacity.
func DefaultEvent() domain.Event {
	return domain.Event{
		ID:             "evt-" + uuid.New().String(),
		Title:          "Go Meetup Kyiv",
		BasePriceCents: 100000,
		Currency:       "UAH",
		Capacity:       100,
		Date:           time.Now().Add(30 * 24 * time.Hour),
		CreatedAt:      time.Now(),
	}
}

// PendingRegistration returns a registration awaiting payment for the event.
func PendingRegistration(eventID string) domain.Registration {
	return domain.Registration{
		ID:              "reg-" + uuid.New().String(),
		EventID:         eventID,
		Email:           "attendee@example.com",
		FullName:        "Olena Kovalenko",
		Status:          domain.RegistrationPending,
		PaymentStatus:   domain.RegPaymentPending,
		FinalPriceCents: 100000,
		CreatedAt:       time.Now(),
	}
}

// PendingPaymentWithInvoice returns a pending payment already holding an
// invoice and payment link.
func PendingPaymentWithInvoice(registrationID, invoiceID string) domain.Payment {
	link := "https://pay.example.com/" + invoiceID
	inv := invoiceID
	return domain.Payment{
		ID:             "pay-" + uuid.New().String(),
		RegistrationID: registrationID,
		AmountCents:    100000,
		Currency:       "UAH",
		Status:         domain.StatusPending,
		InvoiceID:      &inv,
		PaymentLink:    &link,
		CreatedAt:      time.Now(),
	}
}

// ActivePromo returns an active percentage promo with remaining usage.
func ActivePromo(code string, percent int64, limit int) domain.PromoCode {
	return domain.PromoCode{
		ID:            "promo-" + uuid.New().String(),
		Code:          domain.NormalizeCode(code),
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: percent,
		UsageLimit:    limit,
		IsActive:      true,
		CreatedAt:     time.Now(),
	}
}
