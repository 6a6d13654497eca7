package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okhomenko/eventgate/internal/application"
)

// querier is the subset of pgx shared by pgxpool.Pool and pgx.Tx, so the same
// repository code runs inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements application.Store over PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	q    querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) Events() application.EventRepository {
	return &EventRepository{q: s.q}
}

func (s *Store) Registrations() application.RegistrationRepository {
	return &RegistrationRepository{q: s.q}
}

func (s *Store) Payments() application.PaymentRepository {
	return &PaymentRepository{q: s.q}
}

func (s *Store) PromoCodes() application.PromoCodeRepository {
	return &PromoCodeRepository{q: s.q}
}

// WithinTx runs fn against a transaction-scoped Store. Any error from fn
// rolls back every write made through it.
func (s *Store) WithinTx(ctx context.Context, fn func(application.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txStore := &Store{pool: s.pool, q: tx}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
