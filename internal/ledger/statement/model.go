package statement

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubjectKind selects what the statement is computed over.
type SubjectKind string

const (
	SubjectAccount  SubjectKind = "ACCOUNT"
	SubjectCustomer SubjectKind = "CUSTOMER"
	SubjectSupplier SubjectKind = "SUPPLIER"
)

// Side is the normal balance side of the statement subject. Debit-normal
// subjects (accounts receivable, asset accounts) grow with debits;
// credit-normal subjects (suppliers, liabilities) grow with credits.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// NormalSide returns the running-balance convention for the subject kind.
func (k SubjectKind) NormalSide() Side {
	if k == SubjectSupplier {
		return SideCredit
	}
	return SideDebit
}

// Query identifies one statement request.
type Query struct {
	CompanyID int64       `json:"company_id"`
	Kind      SubjectKind `json:"kind"`
	SubjectID int64       `json:"subject_id"`
	From      time.Time   `json:"from"`
	To        time.Time   `json:"to"`
}

// Line is one row of the statement with its running balance.
type Line struct {
	Date        time.Time       `json:"date"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description"`
	DocNo       string          `json:"doc_no"`
	TypeName    string          `json:"type_name"`
}

// Statement is the outbound report consumed by print/export templates.
type Statement struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Transactions   []Line          `json:"transactions"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Period         Period          `json:"period"`
}

// Period echoes the requested window.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Row is the raw journal data the builder walks.
type Row struct {
	Date        time.Time
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	DocNo       string
	TypeName    string
}
