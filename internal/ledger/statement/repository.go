package statement

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// OpeningBalance sums debit-credit over the subject's full history
	// before the window start.
	OpeningBalance(ctx context.Context, q Query) (decimal.Decimal, error)
	// RowsBetween fetches the subject's rows inside the window, ascending
	// by entry date.
	RowsBetween(ctx context.Context, q Query) ([]Row, error)
	// AccountBalances aggregates per-account opening and movement for the
	// trial balance.
	AccountBalances(ctx context.Context, companyID int64, q Query) ([]AccountBalance, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func subjectFilter(q Query) (string, []any) {
	args := []any{q.CompanyID, q.SubjectID}
	switch q.Kind {
	case SubjectCustomer:
		return `company_id=$1 AND counterparty_type='CUSTOMER' AND counterparty_id=$2`, args
	case SubjectSupplier:
		return `company_id=$1 AND counterparty_type='SUPPLIER' AND counterparty_id=$2`, args
	default:
		return `company_id=$1 AND account_id=$2`, args
	}
}

func (r *repository) OpeningBalance(ctx context.Context, q Query) (decimal.Decimal, error) {
	filter, args := subjectFilter(q)
	sign := "debit - credit"
	if q.Kind.NormalSide() == SideCredit {
		sign = "credit - debit"
	}
	args = append(args, q.From)
	var opening decimal.Decimal
	query := fmt.Sprintf(`SELECT COALESCE(SUM(%s), 0) FROM journal_entries WHERE %s AND entry_date < $3`, sign, filter)
	if err := r.db.QueryRow(ctx, query, args...).Scan(&opening); err != nil {
		return decimal.Zero, err
	}
	return opening, nil
}

func (r *repository) RowsBetween(ctx context.Context, q Query) ([]Row, error) {
	filter, args := subjectFilter(q)
	args = append(args, q.From, q.To)
	query := fmt.Sprintf(`SELECT entry_date, debit, credit, description, entry_number, doc_kind
FROM journal_entries WHERE %s AND entry_date >= $3 AND entry_date <= $4 ORDER BY entry_date, id`, filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.Date, &row.Debit, &row.Credit, &row.Description, &row.DocNo, &row.TypeName); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) AccountBalances(ctx context.Context, companyID int64, q Query) ([]AccountBalance, error) {
	rows, err := r.db.Query(ctx, `SELECT a.code, a.name, a.account_type,
COALESCE(SUM(CASE WHEN e.entry_date < $2 THEN e.debit - e.credit END), 0) AS opening,
COALESCE(SUM(CASE WHEN e.entry_date >= $2 AND e.entry_date <= $3 THEN e.debit END), 0) AS debit,
COALESCE(SUM(CASE WHEN e.entry_date >= $2 AND e.entry_date <= $3 THEN e.credit END), 0) AS credit
FROM accounts a
LEFT JOIN journal_entries e ON e.account_id = a.id AND e.company_id = a.company_id
WHERE a.company_id=$1
GROUP BY a.code, a.name, a.account_type
ORDER BY a.code`, companyID, q.From, q.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.Code, &b.Name, &b.Type, &b.Opening, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
