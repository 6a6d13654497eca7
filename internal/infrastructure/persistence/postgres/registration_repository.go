package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/domain"
)

type RegistrationRepository struct {
	q querier
}

func (r *RegistrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	query := `
		INSERT INTO registrations (
			id, event_id, user_id, email, full_name, phone,
			promo_code, promo_code_id, status, payment_status,
			final_price_cents, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	m := registrationToModel(reg)
	_, err := r.q.Exec(ctx, query,
		m.ID, m.EventID, m.UserID, m.Email, m.FullName, m.Phone,
		m.PromoCode, m.PromoCodeID, m.Status, m.PaymentStatus,
		m.FinalPriceCents, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateRegistration
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}

	return nil
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := selectRegistration + ` WHERE id = $1`

	row := r.q.QueryRow(ctx, query, id)
	return scanRegistration(row)
}

// FindPendingByEmailAndEvent resolves a registration for payment-link resume.
// Email matching is case-insensitive; cancelled registrations do not count.
func (r *RegistrationRepository) FindPendingByEmailAndEvent(ctx context.Context, email, eventID string) (*domain.Registration, error) {
	query := selectRegistration + `
		WHERE event_id = $1 AND lower(email) = lower($2) AND status <> 'CANCELLED'
		ORDER BY created_at DESC
		LIMIT 1
	`

	row := r.q.QueryRow(ctx, query, eventID, email)
	return scanRegistration(row)
}

func (r *RegistrationRepository) Update(ctx context.Context, reg *domain.Registration) error {
	query := `
		UPDATE registrations
		SET status = $1, payment_status = $2, promo_code = $3, promo_code_id = $4,
		    final_price_cents = $5, updated_at = NOW()
		WHERE id = $6
	`

	m := registrationToModel(reg)
	tag, err := r.q.Exec(ctx, query,
		m.Status, m.PaymentStatus, m.PromoCode, m.PromoCodeID, m.FinalPriceCents, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrRegistrationNotFound
	}

	return nil
}

const selectRegistration = `
	SELECT id, event_id, user_id, email, full_name, phone,
	       promo_code, promo_code_id, status, payment_status,
	       final_price_cents, created_at, updated_at
	FROM registrations
`

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	var m RegistrationModel
	err := row.Scan(
		&m.ID, &m.EventID, &m.UserID, &m.Email, &m.FullName, &m.Phone,
		&m.PromoCode, &m.PromoCodeID, &m.Status, &m.PaymentStatus,
		&m.FinalPriceCents, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, application.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan registration: %w", err)
	}

	return registrationToDomain(m), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
