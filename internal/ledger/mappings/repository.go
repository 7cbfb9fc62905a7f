package mappings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
)

type Repository interface {
	GetDefault(ctx context.Context, companyID int64, mappingType MappingType) (AccountMapping, error)
	List(ctx context.Context, companyID int64) ([]AccountMapping, error)
	SetDefault(ctx context.Context, companyID int64, mappingType MappingType, accountID int64) (AccountMapping, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// GetDefault resolves the default account mapping for the role.
func (r *repository) GetDefault(ctx context.Context, companyID int64, mappingType MappingType) (AccountMapping, error) {
	if companyID == 0 || mappingType == "" {
		return AccountMapping{}, errors.New("mappings: company and mapping type required")
	}
	var m AccountMapping
	err := r.db.QueryRow(ctx, `SELECT id, company_id, mapping_type, account_id, is_default, created_at, updated_at
FROM account_mappings WHERE company_id=$1 AND mapping_type=$2 AND is_default`, companyID, mappingType).
		Scan(&m.ID, &m.CompanyID, &m.Type, &m.AccountID, &m.IsDefault, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, shared.ErrMappingNotFound
		}
		return AccountMapping{}, err
	}
	return m, nil
}

func (r *repository) List(ctx context.Context, companyID int64) ([]AccountMapping, error) {
	rows, err := r.db.Query(ctx, `SELECT id, company_id, mapping_type, account_id, is_default, created_at, updated_at
FROM account_mappings WHERE company_id=$1 ORDER BY mapping_type`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.Type, &m.AccountID, &m.IsDefault, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetDefault demotes any current default for the role and promotes the given
// account, inside one transaction so the one-default invariant holds.
func (r *repository) SetDefault(ctx context.Context, companyID int64, mappingType MappingType, accountID int64) (AccountMapping, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return AccountMapping{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE account_mappings SET is_default=FALSE, updated_at=NOW()
WHERE company_id=$1 AND mapping_type=$2 AND is_default`, companyID, mappingType); err != nil {
		return AccountMapping{}, err
	}
	var m AccountMapping
	err = tx.QueryRow(ctx, `INSERT INTO account_mappings (company_id, mapping_type, account_id, is_default)
VALUES ($1,$2,$3,TRUE)
ON CONFLICT (company_id, mapping_type, account_id) DO UPDATE SET is_default=TRUE, updated_at=NOW()
RETURNING id, company_id, mapping_type, account_id, is_default, created_at, updated_at`, companyID, mappingType, accountID).
		Scan(&m.ID, &m.CompanyID, &m.Type, &m.AccountID, &m.IsDefault, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return AccountMapping{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return AccountMapping{}, err
	}
	return m, nil
}
