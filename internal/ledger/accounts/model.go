package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset        AccountType = "ASSET"
	AccountTypeLiability    AccountType = "LIABILITY"
	AccountTypeEquity       AccountType = "EQUITY"
	AccountTypeRevenue      AccountType = "REVENUE"
	AccountTypeExpense      AccountType = "EXPENSE"
	AccountTypeCostOfGoods  AccountType = "COST_OF_GOODS"
)

// CarriesForward reports whether balances of this type survive a fiscal
// close. Income statement accounts zero out into retained earnings.
func (t AccountType) CarriesForward() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity:
		return true
	default:
		return false
	}
}

// AccountCategory refines the account type for reporting.
type AccountCategory string

const (
	CategoryCashAndBank        AccountCategory = "CASH_AND_BANK"
	CategoryAccountsReceivable AccountCategory = "ACCOUNTS_RECEIVABLE"
	CategoryAccountsPayable    AccountCategory = "ACCOUNTS_PAYABLE"
	CategoryInventory          AccountCategory = "INVENTORY"
	CategoryRetainedEarnings   AccountCategory = "RETAINED_EARNINGS"
	CategoryOperating          AccountCategory = "OPERATING"
	CategoryOther              AccountCategory = "OTHER"
)

// Account models a chart of accounts node scoped to one company. Balance is
// the running signed total of all posted journal legs for the account and is
// mutated only by the posting engine.
type Account struct {
	ID        int64           `json:"id"`
	CompanyID int64           `json:"company_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Category  AccountCategory `json:"category"`
	ParentID  *int64          `json:"parent_id,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	IsActive  bool            `json:"is_active"`
	IsSystem  bool            `json:"is_system"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ValidTypes lists every accepted account type.
var ValidTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
	AccountTypeCostOfGoods,
}

// IsValidType reports whether t is a known account type.
func IsValidType(t AccountType) bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}
