package ap

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/outbox"
	"github.com/meridian-erp/meridian-ledger/internal/platform/db"
)

// Repository exposes supplier reads plus the payment transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetSupplier(ctx context.Context, companyID, supplierID int64) (Supplier, error)
	ListSuppliers(ctx context.Context, companyID int64) ([]Supplier, error)
	ListPayments(ctx context.Context, companyID, supplierID int64) ([]SupplierPayment, error)
	MarkOutboxDispatched(ctx context.Context, id uuid.UUID) error
}

// TxRepository carries payment mutations inside one transaction. The outbox
// insert rides the same transaction so the posting intent commits with the
// money mutation or not at all.
type TxRepository interface {
	CreateSupplier(ctx context.Context, s Supplier) (Supplier, error)
	GetSupplierForUpdate(ctx context.Context, companyID, supplierID int64) (Supplier, error)
	AddToSupplierBalance(ctx context.Context, companyID, supplierID int64, delta decimal.Decimal) error
	InsertPayment(ctx context.Context, p *SupplierPayment) error
	InsertOutbox(ctx context.Context, e outbox.Entry) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const supplierColumns = `id, company_id, name, COALESCE(email, ''), COALESCE(phone, ''), outstanding_balance, is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.CompanyID, &s.Name, &s.Email, &s.Phone,
		&s.OutstandingBalance, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) GetSupplier(ctx context.Context, companyID, supplierID int64) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers
		WHERE company_id = $1 AND id = $2`, companyID, supplierID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, err
}

func (r *repository) ListSuppliers(ctx context.Context, companyID int64) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers
		WHERE company_id = $1 AND is_active
		ORDER BY name`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) MarkOutboxDispatched(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE ledger_outbox
		SET status = 'DISPATCHED', dispatched_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`, id)
	return err
}

func (r *repository) ListPayments(ctx context.Context, companyID, supplierID int64) ([]SupplierPayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, supplier_id, amount, method, paid_at, created_by, created_at
		FROM supplier_payments
		WHERE company_id = $1 AND supplier_id = $2
		ORDER BY paid_at DESC, created_at DESC`, companyID, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SupplierPayment
	for rows.Next() {
		var p SupplierPayment
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.SupplierID, &p.Amount,
			&p.Method, &p.PaidAt, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) CreateSupplier(ctx context.Context, s Supplier) (Supplier, error) {
	created, err := scanSupplier(r.tx.QueryRow(ctx, `
		INSERT INTO suppliers (company_id, name, email, phone, outstanding_balance, is_active)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, TRUE)
		RETURNING `+supplierColumns,
		s.CompanyID, s.Name, s.Email, s.Phone, s.OutstandingBalance))
	return created, err
}

func (r *txRepository) InsertOutbox(ctx context.Context, e outbox.Entry) error {
	return outbox.Insert(ctx, r.tx, e)
}

func (r *txRepository) GetSupplierForUpdate(ctx context.Context, companyID, supplierID int64) (Supplier, error) {
	s, err := scanSupplier(r.tx.QueryRow(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers
		WHERE company_id = $1 AND id = $2
		FOR UPDATE`, companyID, supplierID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, err
}

func (r *txRepository) AddToSupplierBalance(ctx context.Context, companyID, supplierID int64, delta decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE suppliers
		SET outstanding_balance = outstanding_balance + $3, updated_at = NOW()
		WHERE company_id = $1 AND id = $2`, companyID, supplierID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

func (r *txRepository) InsertPayment(ctx context.Context, p *SupplierPayment) error {
	return r.tx.QueryRow(ctx, `
		INSERT INTO supplier_payments (id, company_id, supplier_id, amount, method, paid_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		p.ID, p.CompanyID, p.SupplierID, p.Amount, p.Method, p.PaidAt, p.CreatedBy).
		Scan(&p.CreatedAt)
}
