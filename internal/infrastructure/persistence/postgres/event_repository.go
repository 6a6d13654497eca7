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

type EventRepository struct {
	q querier
}

func (r *EventRepository) FindByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, title, base_price_cents, currency, capacity, registered_count,
		       date, created_at, updated_at
		FROM events WHERE id = $1
	`

	var m EventModel
	err := r.q.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.Title, &m.BasePriceCents, &m.Currency, &m.Capacity,
		&m.RegisteredCount, &m.Date, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, application.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event: %w", err)
	}

	return eventToDomain(m), nil
}

// ReserveSeat takes one slot with a guarded atomic increment. Zero rows
// affected means either a full event, a past event, or an unknown id; the
// caller distinguishes by re-reading the event.
func (r *EventRepository) ReserveSeat(ctx context.Context, eventID string, now time.Time) error {
	query := `
		UPDATE events
		SET registered_count = registered_count + 1, updated_at = NOW()
		WHERE id = $1 AND registered_count < capacity AND date > $2
	`

	tag, err := r.q.Exec(ctx, query, eventID, now)
	if err != nil {
		return fmt.Errorf("failed to reserve seat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		event, findErr := r.FindByID(ctx, eventID)
		if findErr != nil {
			return findErr
		}
		if err := event.Registrable(now); err != nil {
			return err
		}
		return domain.ErrEventFull
	}

	return nil
}

func (r *EventRepository) ReleaseSeat(ctx context.Context, eventID string) error {
	query := `
		UPDATE events
		SET registered_count = GREATEST(registered_count - 1, 0), updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, eventID)
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrEventNotFound
	}

	return nil
}
