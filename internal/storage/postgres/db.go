package postgres

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/ewm/internal/domain/events"
	"github.com/Togather-Foundation/ewm/internal/domain/requests"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type conn struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (c conn) queryer() queryer {
	if c.tx != nil {
		return c.tx
	}
	return c.pool
}

// Repository is the PostgreSQL-backed unit of work. Outside WithTx every
// repository it hands out runs on the pool.
type Repository struct {
	conn
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{conn: conn{pool: pool}}, nil
}

func (r *Repository) Events() *EventRepository {
	return &EventRepository{conn: r.conn}
}

func (r *Repository) Users() *UserRepository {
	return &UserRepository{conn: r.conn}
}

func (r *Repository) Categories() *CategoryRepository {
	return &CategoryRepository{conn: r.conn}
}

func (r *Repository) Requests() *RequestRepository {
	return &RequestRepository{conn: r.conn}
}

func (r *Repository) Hits() *HitRepository {
	return &HitRepository{conn: r.conn}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithTx runs fn in a transaction, or in the current one when r is already
// transactional. The transaction rolls back when fn returns an error.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, *Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, &Repository{conn: conn{pool: r.pool, tx: tx}}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// EventStore adapts r to the event lifecycle's unit of work.
func (r *Repository) EventStore() events.Store {
	return eventStore{repo: r}
}

// RequestStore adapts r to the request lifecycle's unit of work.
func (r *Repository) RequestStore() requests.Store {
	return requestStore{repo: r}
}

type eventStore struct {
	repo *Repository
}

func (s eventStore) Events() events.Repository         { return s.repo.Events() }
func (s eventStore) Users() events.UserReader          { return s.repo.Users() }
func (s eventStore) Categories() events.CategoryReader { return s.repo.Categories() }
func (s eventStore) Confirmed() events.ConfirmedCounts { return s.repo.Requests() }

func (s eventStore) WithTx(ctx context.Context, fn func(context.Context, events.Store) error) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx *Repository) error {
		return fn(ctx, eventStore{repo: tx})
	})
}

type requestStore struct {
	repo *Repository
}

func (s requestStore) Requests() requests.Repository { return s.repo.Requests() }
func (s requestStore) Events() requests.EventReader  { return s.repo.Events() }
func (s requestStore) Users() requests.UserReader    { return s.repo.Users() }

func (s requestStore) WithTx(ctx context.Context, fn func(context.Context, requests.Store) error) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx *Repository) error {
		return fn(ctx, requestStore{repo: tx})
	})
}
