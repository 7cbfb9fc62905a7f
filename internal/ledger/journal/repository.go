package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
)

// Repository encapsulates DB operations for the journal entry store.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListByReference(ctx context.Context, companyID int64, referenceID uuid.UUID, referenceType string) ([]Entry, error)
	List(ctx context.Context, companyID int64, limit, offset int) ([]Entry, error)
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	ReferencePosted(ctx context.Context, companyID int64, referenceID uuid.UUID, referenceType string) (bool, error)
	MaxSequence(ctx context.Context, companyID int64, year int) (int64, error)
	InsertEntry(ctx context.Context, entry *Entry) error
	AddToBalance(ctx context.Context, companyID, accountID int64, delta decimal.Decimal) error
	PeriodClosedOn(ctx context.Context, companyID int64, date time.Time) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, company_id, account_id, description, debit, credit, entry_date, reference_id, reference_type, doc_kind, counterparty_type, counterparty_id, entry_number, created_by, is_automated, created_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.CompanyID, &e.AccountID, &e.Description, &e.Debit, &e.Credit, &e.EntryDate,
		&e.ReferenceID, &e.ReferenceType, &e.DocKind, &e.CounterpartyType, &e.CounterpartyID,
		&e.EntryNumber, &e.CreatedBy, &e.IsAutomated, &e.CreatedAt)
	return e, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *repository) ListByReference(ctx context.Context, companyID int64, referenceID uuid.UUID, referenceType string) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE company_id=$1 AND reference_id=$2 AND reference_type=$3 ORDER BY id`, companyID, referenceID, referenceType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *repository) List(ctx context.Context, companyID int64, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE company_id=$1 ORDER BY entry_date DESC, id DESC LIMIT $2 OFFSET $3`, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) ReferencePosted(ctx context.Context, companyID int64, referenceID uuid.UUID, referenceType string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries
WHERE company_id=$1 AND reference_id=$2 AND reference_type=$3)`, companyID, referenceID, referenceType).Scan(&exists)
	return exists, err
}

// MaxSequence reads the highest issued sequence for the company and year.
// Advisory only; the unique constraint on entry_number is authoritative.
func (r *txRepository) MaxSequence(ctx context.Context, companyID int64, year int) (int64, error) {
	pattern := FormatEntryNumber(year, 0)[:8] + "%"
	var max int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(split_part(entry_number, '-', 3)::bigint), 0)
FROM journal_entries WHERE company_id=$1 AND entry_number LIKE $2`, companyID, pattern).Scan(&max)
	return max, err
}

func (r *txRepository) InsertEntry(ctx context.Context, entry *Entry) error {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries
(company_id, account_id, description, debit, credit, entry_date, reference_id, reference_type, doc_kind, counterparty_type, counterparty_id, entry_number, created_by, is_automated)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING id, created_at`,
		entry.CompanyID, entry.AccountID, entry.Description, entry.Debit, entry.Credit, entry.EntryDate,
		entry.ReferenceID, entry.ReferenceType, entry.DocKind, entry.CounterpartyType, entry.CounterpartyID,
		entry.EntryNumber, entry.CreatedBy, entry.IsAutomated)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_journal_entries_entry_number" {
			return shared.ErrEntryNumberTaken
		}
		return err
	}
	return nil
}

// AddToBalance applies the signed delta with an atomic increment. Reading
// then writing the balance separately would lose concurrent updates.
func (r *txRepository) AddToBalance(ctx context.Context, companyID, accountID int64, delta decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET balance = balance + $3, updated_at=NOW()
WHERE company_id=$1 AND id=$2`, companyID, accountID, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) PeriodClosedOn(ctx context.Context, companyID int64, date time.Time) (bool, error) {
	var closed bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fiscal_periods
WHERE company_id=$1 AND is_closed AND $2 BETWEEN start_date AND end_date)`, companyID, date).Scan(&closed)
	return closed, err
}
