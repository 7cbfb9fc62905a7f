package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
)

type Repository interface {
	List(ctx context.Context, companyID int64) ([]Account, error)
	Get(ctx context.Context, companyID, id int64) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) error
	Deactivate(ctx context.Context, companyID, id int64) error
	HasEntries(ctx context.Context, companyID, id int64) (bool, error)
	Delete(ctx context.Context, companyID, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, company_id, code, name, account_type, category, parent_id, balance, is_active, is_system, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.Category, &a.ParentID, &a.Balance, &a.IsActive, &a.IsSystem, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) List(ctx context.Context, companyID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 ORDER BY code`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND id=$2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, account Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (company_id, code, name, account_type, category, parent_id, balance, is_active, is_system)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at, updated_at`,
		account.CompanyID, account.Code, account.Name, account.Type, account.Category, account.ParentID, account.Balance, account.IsActive, account.IsSystem)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) Update(ctx context.Context, account Account) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET name=$3, category=$4, parent_id=$5, is_active=$6, updated_at=NOW()
WHERE company_id=$1 AND id=$2`, account.CompanyID, account.ID, account.Name, account.Category, account.ParentID, account.IsActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, companyID, id int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET is_active=FALSE, updated_at=NOW() WHERE company_id=$1 AND id=$2`, companyID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) HasEntries(ctx context.Context, companyID, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE company_id=$1 AND account_id=$2)`, companyID, id).Scan(&exists)
	return exists, err
}

func (r *repository) Delete(ctx context.Context, companyID, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE company_id=$1 AND id=$2 AND is_system=FALSE`, companyID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}
