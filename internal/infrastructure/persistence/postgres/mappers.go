package postgres

import (
	"github.com/okhomenko/eventgate/internal/domain"
)

func eventToDomain(m EventModel) *domain.Event {
	return &domain.Event{
		ID:              m.ID,
		Title:           m.Title,
		BasePriceCents:  m.BasePriceCents,
		Currency:        m.Currency,
		Capacity:        m.Capacity,
		RegisteredCount: m.RegisteredCount,
		Date:            m.Date,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func registrationToDomain(m RegistrationModel) *domain.Registration {
	return &domain.Registration{
		ID:              m.ID,
		EventID:         m.EventID,
		UserID:          m.UserID,
		Email:           m.Email,
		FullName:        m.FullName,
		Phone:           m.Phone,
		PromoCode:       m.PromoCode,
		PromoCodeID:     m.PromoCodeID,
		Status:          domain.RegistrationStatus(m.Status),
		PaymentStatus:   domain.RegistrationPaymentStatus(m.PaymentStatus),
		FinalPriceCents: m.FinalPriceCents,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func registrationToModel(r *domain.Registration) RegistrationModel {
	return RegistrationModel{
		ID:              r.ID,
		EventID:         r.EventID,
		UserID:          r.UserID,
		Email:           r.Email,
		FullName:        r.FullName,
		Phone:           r.Phone,
		PromoCode:       r.PromoCode,
		PromoCodeID:     r.PromoCodeID,
		Status:          string(r.Status),
		PaymentStatus:   string(r.PaymentStatus),
		FinalPriceCents: r.FinalPriceCents,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func paymentToDomain(m PaymentModel) *domain.Payment {
	return &domain.Payment{
		ID:                  m.ID,
		RegistrationID:      m.RegistrationID,
		AmountCents:         m.AmountCents,
		Currency:            m.Currency,
		Status:              domain.PaymentStatus(m.Status),
		InvoiceID:           m.InvoiceID,
		ProviderPaymentID:   m.ProviderPaymentID,
		PaymentLink:         m.PaymentLink,
		WebhookPayload:      m.WebhookPayload,
		RefundRef:           m.RefundRef,
		RefundedAmountCents: m.RefundedAmountCents,
		CreatedAt:           m.CreatedAt,
		CompletedAt:         m.CompletedAt,
		FailedAt:            m.FailedAt,
		RefundedAt:          m.RefundedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func paymentToModel(p *domain.Payment) PaymentModel {
	return PaymentModel{
		ID:                  p.ID,
		RegistrationID:      p.RegistrationID,
		AmountCents:         p.AmountCents,
		Currency:            p.Currency,
		Status:              string(p.Status),
		InvoiceID:           p.InvoiceID,
		ProviderPaymentID:   p.ProviderPaymentID,
		PaymentLink:         p.PaymentLink,
		WebhookPayload:      p.WebhookPayload,
		RefundRef:           p.RefundRef,
		RefundedAmountCents: p.RefundedAmountCents,
		CreatedAt:           p.CreatedAt,
		CompletedAt:         p.CompletedAt,
		FailedAt:            p.FailedAt,
		RefundedAt:          p.RefundedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func promoCodeToDomain(m PromoCodeModel) *domain.PromoCode {
	return &domain.PromoCode{
		ID:            m.ID,
		Code:          m.Code,
		DiscountType:  domain.DiscountType(m.DiscountType),
		DiscountValue: m.DiscountValue,
		UsageLimit:    m.UsageLimit,
		UsedCount:     m.UsedCount,
		IsActive:      m.IsActive,
		ExpiresAt:     m.ExpiresAt,
		EventID:       m.EventID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
