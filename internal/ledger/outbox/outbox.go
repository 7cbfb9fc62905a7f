// Package outbox stores ledger posting intents in the same transaction as
// the money mutation that caused them. A posting enqueued only after commit
// is lost if the process dies in between; the outbox row survives and a
// worker sweep replays it. Posting idempotency absorbs the occasional double
// dispatch.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status tracks an entry through its lifecycle.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusDispatched Status = "DISPATCHED"
	StatusFailed     Status = "FAILED"
)

// Entry is one durable posting intent. Payload is the serialized posting
// task payload; keeping it opaque here avoids coupling storage to the queue
// package.
type Entry struct {
	ID           uuid.UUID
	CompanyID    int64
	Payload      json.RawMessage
	Status       Status
	LastError    string
	CreatedAt    time.Time
	DispatchedAt *time.Time
}

// NewEntry wraps a payload into a pending entry.
func NewEntry(companyID int64, payload any) (Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{ID: uuid.New(), CompanyID: companyID, Payload: raw, Status: StatusPending}, nil
}

// Execer is the slice of pgx.Tx the insert needs, so callers can write the
// entry inside their own transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Insert writes the entry through the caller's transaction.
func Insert(ctx context.Context, q Execer, e Entry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO ledger_outbox (id, company_id, payload, status)
		VALUES ($1, $2, $3, 'PENDING')`, e.ID, e.CompanyID, e.Payload)
	return err
}

// Repository reads and settles outbox entries outside the producing
// transaction.
type Repository interface {
	ListPending(ctx context.Context, limit int) ([]Entry, error)
	MarkDispatched(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListPending(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, payload, status, COALESCE(last_error, ''), created_at, dispatched_at
		FROM ledger_outbox
		WHERE status = 'PENDING'
		ORDER BY created_at, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Payload, &e.Status,
			&e.LastError, &e.CreatedAt, &e.DispatchedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) MarkDispatched(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ledger_outbox
		SET status = 'DISPATCHED', dispatched_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`, id)
	return err
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ledger_outbox
		SET status = 'FAILED', last_error = $2
		WHERE id = $1 AND status = 'PENDING'`, id, reason)
	return err
}

var _ Execer = pgx.Tx(nil)
