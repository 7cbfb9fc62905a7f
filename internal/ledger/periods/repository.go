package periods

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	ledgererr "github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
	"github.com/meridian-erp/meridian-ledger/internal/platform/db"
)

// Repository exposes fiscal period reads plus the close transaction.
type Repository interface {
	List(ctx context.Context, companyID int64) ([]FiscalPeriod, error)
	Get(ctx context.Context, companyID, periodID int64) (FiscalPeriod, error)
	Create(ctx context.Context, in CreatePeriodInput) (FiscalPeriod, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error

	ListPendingEvents(ctx context.Context, limit int) ([]LedgerEvent, error)
	MarkEventProcessed(ctx context.Context, eventID uuid.UUID, at time.Time) error
	MarkEventFailed(ctx context.Context, eventID uuid.UUID, reason string) error
}

// TxRepository carries the close-time mutations inside one transaction.
type TxRepository interface {
	GetPeriodForUpdate(ctx context.Context, companyID, periodID int64) (FiscalPeriod, error)
	SnapshotNonzeroBalances(ctx context.Context, companyID int64) ([]BalanceSnapshot, error)
	MarkClosed(ctx context.Context, periodID, actorID int64, at time.Time) error
	InsertEvent(ctx context.Context, ev LedgerEvent) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const periodColumns = `id, company_id, period_name, start_date, end_date, is_closed, closed_by, closed_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (FiscalPeriod, error) {
	var p FiscalPeriod
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.StartDate, &p.EndDate,
		&p.IsClosed, &p.ClosedBy, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *pgRepository) List(ctx context.Context, companyID int64) ([]FiscalPeriod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+periodColumns+`
		FROM fiscal_periods
		WHERE company_id = $1
		ORDER BY start_date DESC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FiscalPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, companyID, periodID int64) (FiscalPeriod, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `
		SELECT `+periodColumns+`
		FROM fiscal_periods
		WHERE company_id = $1 AND id = $2`, companyID, periodID))
	if errors.Is(err, pgx.ErrNoRows) {
		return FiscalPeriod{}, ledgererr.ErrPeriodNotFound
	}
	return p, err
}

func (r *pgRepository) Create(ctx context.Context, in CreatePeriodInput) (FiscalPeriod, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `
		INSERT INTO fiscal_periods (company_id, period_name, start_date, end_date)
		VALUES ($1, $2, $3, $4)
		RETURNING `+periodColumns,
		in.CompanyID, in.Name, in.StartDate, in.EndDate))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return FiscalPeriod{}, ErrPeriodOverlap
	}
	return p, err
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) GetPeriodForUpdate(ctx context.Context, companyID, periodID int64) (FiscalPeriod, error) {
	p, err := scanPeriod(r.tx.QueryRow(ctx, `
		SELECT `+periodColumns+`
		FROM fiscal_periods
		WHERE company_id = $1 AND id = $2
		FOR UPDATE`, companyID, periodID))
	if errors.Is(err, pgx.ErrNoRows) {
		return FiscalPeriod{}, ledgererr.ErrPeriodNotFound
	}
	return p, err
}

func (r *pgTxRepository) SnapshotNonzeroBalances(ctx context.Context, companyID int64) ([]BalanceSnapshot, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, code, account_type, balance
		FROM accounts
		WHERE company_id = $1 AND is_active AND balance <> 0
		ORDER BY code`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceSnapshot
	for rows.Next() {
		var s BalanceSnapshot
		if err := rows.Scan(&s.AccountID, &s.Code, &s.Type, &s.Balance); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *pgTxRepository) MarkClosed(ctx context.Context, periodID, actorID int64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE fiscal_periods
		SET is_closed = TRUE, closed_by = $2, closed_at = $3, updated_at = $3
		WHERE id = $1`, periodID, actorID, at)
	return err
}

func (r *pgTxRepository) InsertEvent(ctx context.Context, ev LedgerEvent) error {
	payload, err := json.Marshal(ev.Snapshot)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `
		INSERT INTO ledger_events (id, company_id, period_id, kind, effective_date, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.CompanyID, ev.PeriodID, ev.Kind, ev.EffectiveDate, payload, ev.Status, ev.CreatedAt)
	return err
}

func (r *pgRepository) ListPendingEvents(ctx context.Context, limit int) ([]LedgerEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, period_id, kind, effective_date, payload, status, COALESCE(last_error, ''), processed_at, created_at
		FROM ledger_events
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEvent
	for rows.Next() {
		var ev LedgerEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.CompanyID, &ev.PeriodID, &ev.Kind, &ev.EffectiveDate,
			&payload, &ev.Status, &ev.LastError, &ev.ProcessedAt, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &ev.Snapshot); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *pgRepository) MarkEventProcessed(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ledger_events
		SET status = 'PROCESSED', processed_at = $2, last_error = NULL
		WHERE id = $1`, eventID, at)
	return err
}

func (r *pgRepository) MarkEventFailed(ctx context.Context, eventID uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ledger_events
		SET status = 'FAILED', last_error = $2
		WHERE id = $1`, eventID, reason)
	return err
}
