package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/okhomenko/eventgate/internal/domain"
)

type PromoCodeRepository struct {
	q querier
}

func (r *PromoCodeRepository) FindByID(ctx context.Context, id string) (*domain.PromoCode, error) {
	row := r.q.QueryRow(ctx, selectPromoCode+` WHERE id = $1`, id)
	return scanPromoCode(row)
}

func (r *PromoCodeRepository) FindByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	row := r.q.QueryRow(ctx, selectPromoCode+` WHERE code = $1`, domain.NormalizeCode(code))
	return scanPromoCode(row)
}

// Redeem consumes one usage with a guarded increment so used_count can never
// pass usage_limit, no matter how many settlements race.
func (r *PromoCodeRepository) Redeem(ctx context.Context, id string) error {
	query := `
		UPDATE promo_codes
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND used_count < usage_limit
	`

	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to redeem promo code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrPromoExhausted
	}

	return nil
}

// Reverse returns one usage, clamped at zero.
func (r *PromoCodeRepository) Reverse(ctx context.Context, id string) error {
	query := `
		UPDATE promo_codes
		SET used_count = GREATEST(used_count - 1, 0), updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to reverse promo redemption: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPromoNotFound
	}

	return nil
}

const selectPromoCode = `
	SELECT id, code, discount_type, discount_value, usage_limit, used_count,
	       is_active, expires_at, event_id, created_at, updated_at
	FROM promo_codes
`

func scanPromoCode(row pgx.Row) (*domain.PromoCode, error) {
	var m PromoCodeModel
	err := row.Scan(
		&m.ID, &m.Code, &m.DiscountType, &m.DiscountValue, &m.UsageLimit,
		&m.UsedCount, &m.IsActive, &m.ExpiresAt, &m.EventID, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPromoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan promo code: %w", err)
	}

	return promoCodeToDomain(m), nil
}
