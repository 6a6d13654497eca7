package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/domain"
)

type PaymentRepository struct {
	q querier
}

func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, registration_id, amount_cents, currency, status,
			invoice_id, provider_payment_id, payment_link, webhook_payload,
			refund_ref, refunded_amount_cents,
			created_at, completed_at, failed_at, refunded_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	m := paymentToModel(payment)
	_, err := r.q.Exec(ctx, query,
		m.ID, m.RegistrationID, m.AmountCents, m.Currency, m.Status,
		m.InvoiceID, m.ProviderPaymentID, m.PaymentLink, m.WebhookPayload,
		m.RefundRef, m.RefundedAmountCents,
		m.CreatedAt, m.CompletedAt, m.FailedAt, m.RefundedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.q.QueryRow(ctx, selectPayment+` WHERE id = $1`, id)
	return scanPayment(row)
}

func (r *PaymentRepository) FindByRegistrationID(ctx context.Context, registrationID string) (*domain.Payment, error) {
	query := selectPayment + `
		WHERE registration_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	row := r.q.QueryRow(ctx, query, registrationID)
	return scanPayment(row)
}

func (r *PaymentRepository) FindByInvoiceID(ctx context.Context, invoiceID string) (*domain.Payment, error) {
	row := r.q.QueryRow(ctx, selectPayment+` WHERE invoice_id = $1`, invoiceID)
	return scanPayment(row)
}

func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, invoice_id = $2, provider_payment_id = $3, payment_link = $4,
		    webhook_payload = $5, refund_ref = $6, refunded_amount_cents = $7,
		    completed_at = $8, failed_at = $9, refunded_at = $10, updated_at = NOW()
		WHERE id = $11
	`

	m := paymentToModel(payment)
	tag, err := r.q.Exec(ctx, query,
		m.Status, m.InvoiceID, m.ProviderPaymentID, m.PaymentLink,
		m.WebhookPayload, m.RefundRef, m.RefundedAmountCents,
		m.CompletedAt, m.FailedAt, m.RefundedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrPaymentNotFound
	}

	return nil
}

func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrPaymentNotFound
	}

	return nil
}

// FindStalePending lists PENDING payments created before the cutoff. The
// sweeper uses withInvoice=true to reconcile against the provider and
// withInvoice=false to release seats held by registrations that never got an
// invoice.
func (r *PaymentRepository) FindStalePending(ctx context.Context, cutoff time.Time, withInvoice bool, limit int) ([]*domain.Payment, error) {
	invoiceClause := "invoice_id IS NULL"
	if withInvoice {
		invoiceClause = "invoice_id IS NOT NULL"
	}

	query := fmt.Sprintf(`%s
		WHERE status = 'PENDING' AND created_at < $1 AND %s
		ORDER BY created_at ASC
		LIMIT $2
	`, selectPayment, invoiceClause)

	rows, err := r.q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale payments: %w", err)
	}

	return payments, nil
}

const selectPayment = `
	SELECT id, registration_id, amount_cents, currency, status,
	       invoice_id, provider_payment_id, payment_link, webhook_payload,
	       refund_ref, refunded_amount_cents,
	       created_at, completed_at, failed_at, refunded_at, updated_at
	FROM payments
`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var m PaymentModel
	err := row.Scan(
		&m.ID, &m.RegistrationID, &m.AmountCents, &m.Currency, &m.Status,
		&m.InvoiceID, &m.ProviderPaymentID, &m.PaymentLink, &m.WebhookPayload,
		&m.RefundRef, &m.RefundedAmountCents,
		&m.CreatedAt, &m.CompletedAt, &m.FailedAt, &m.RefundedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, application.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	return paymentToDomain(m), nil
}
