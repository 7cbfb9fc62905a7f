package ar

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

// Repository exposes customer and invoice reads plus payment transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetCustomer(ctx context.Context, companyID, customerID int64) (Customer, error)
	ListCustomers(ctx context.Context, companyID int64) ([]Customer, error)
	GetInvoice(ctx context.Context, companyID, invoiceID int64) (SalesInvoice, error)
	ListInvoicesByCustomer(ctx context.Context, companyID, customerID int64) ([]SalesInvoice, error)
	ListPaymentsByCustomer(ctx context.Context, companyID, customerID int64) ([]Payment, error)
	MarkOutboxDispatched(ctx context.Context, id uuid.UUID) error
}

// TxRepository carries payment mutations inside one transaction. The outbox
// insert rides the same transaction so the posting intent commits with the
// money mutation or not at all.
type TxRepository interface {
	CreateCustomer(ctx context.Context, c Customer) (Customer, error)
	GetInvoiceForUpdate(ctx context.Context, companyID, invoiceID int64) (SalesInvoice, error)
	UpdateInvoicePayment(ctx context.Context, inv SalesInvoice) error
	AddToCustomerBalance(ctx context.Context, companyID, customerID int64, delta decimal.Decimal) error
	InsertPayment(ctx context.Context, p *Payment) error
	InsertOutbox(ctx context.Context, e outbox.Entry) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const customerColumns = `id, company_id, name, COALESCE(email, ''), COALESCE(phone, ''), outstanding_balance, is_active, created_at, updated_at`

const invoiceColumns = `id, company_id, customer_id, invoice_number, invoice_date, total_amount, amount_paid, amount_due, payment_status, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone,
		&c.OutstandingBalance, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanInvoice(row pgx.Row) (SalesInvoice, error) {
	var inv SalesInvoice
	err := row.Scan(&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.InvoiceNumber,
		&inv.InvoiceDate, &inv.TotalAmount, &inv.AmountPaid, &inv.AmountDue,
		&inv.PaymentStatus, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) GetCustomer(ctx context.Context, companyID, customerID int64) (Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE company_id = $1 AND id = $2`, companyID, customerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrCustomerNotFound
	}
	return c, err
}

func (r *repository) ListCustomers(ctx context.Context, companyID int64) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE company_id = $1 AND is_active
		ORDER BY name`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
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

func (r *repository) GetInvoice(ctx context.Context, companyID, invoiceID int64) (SalesInvoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM sales_invoices
		WHERE company_id = $1 AND id = $2`, companyID, invoiceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return SalesInvoice{}, ErrInvoiceNotFound
	}
	return inv, err
}

func (r *repository) ListInvoicesByCustomer(ctx context.Context, companyID, customerID int64) ([]SalesInvoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM sales_invoices
		WHERE company_id = $1 AND customer_id = $2
		ORDER BY invoice_date, id`, companyID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalesInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *repository) ListPaymentsByCustomer(ctx context.Context, companyID, customerID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, customer_id, invoice_id, amount, method, paid_at, created_by, created_at
		FROM payments
		WHERE company_id = $1 AND customer_id = $2
		ORDER BY paid_at DESC, created_at DESC`, companyID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.CustomerID, &p.InvoiceID,
			&p.Amount, &p.Method, &p.PaidAt, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	created, err := scanCustomer(r.tx.QueryRow(ctx, `
		INSERT INTO customers (company_id, name, email, phone, outstanding_balance, is_active)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, TRUE)
		RETURNING `+customerColumns,
		c.CompanyID, c.Name, c.Email, c.Phone, c.OutstandingBalance))
	return created, err
}

func (r *txRepository) InsertOutbox(ctx context.Context, e outbox.Entry) error {
	return outbox.Insert(ctx, r.tx, e)
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, companyID, invoiceID int64) (SalesInvoice, error) {
	inv, err := scanInvoice(r.tx.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM sales_invoices
		WHERE company_id = $1 AND id = $2
		FOR UPDATE`, companyID, invoiceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return SalesInvoice{}, ErrInvoiceNotFound
	}
	return inv, err
}

func (r *txRepository) UpdateInvoicePayment(ctx context.Context, inv SalesInvoice) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE sales_invoices
		SET amount_paid = $2, amount_due = $3, payment_status = $4, updated_at = NOW()
		WHERE id = $1`, inv.ID, inv.AmountPaid, inv.AmountDue, inv.PaymentStatus)
	return err
}

func (r *txRepository) AddToCustomerBalance(ctx context.Context, companyID, customerID int64, delta decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE customers
		SET outstanding_balance = outstanding_balance + $3, updated_at = NOW()
		WHERE company_id = $1 AND id = $2`, companyID, customerID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *txRepository) InsertPayment(ctx context.Context, p *Payment) error {
	return r.tx.QueryRow(ctx, `
		INSERT INTO payments (id, company_id, customer_id, invoice_id, amount, method, paid_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		p.ID, p.CompanyID, p.CustomerID, p.InvoiceID, p.Amount, p.Method, p.PaidAt, p.CreatedBy).
		Scan(&p.CreatedAt)
}
