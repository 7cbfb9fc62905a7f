package mappings

import "time"

// MappingType names the semantic role an account plays for a company.
// Posting flows address accounts through these roles rather than raw IDs.
type MappingType string

const (
	MappingCash                 MappingType = "cash"
	MappingBank                 MappingType = "bank"
	MappingAccountsReceivable   MappingType = "accounts_receivable"
	MappingAccountsPayable      MappingType = "accounts_payable"
	MappingSalesRevenue         MappingType = "sales_revenue"
	MappingInventory            MappingType = "inventory"
	MappingCostOfGoods          MappingType = "cost_of_goods"
	MappingRetainedEarnings     MappingType = "retained_earnings"
	MappingOpeningBalanceEquity MappingType = "opening_balance_equity"
)

// ValidTypes lists every accepted mapping role.
var ValidTypes = []MappingType{
	MappingCash,
	MappingBank,
	MappingAccountsReceivable,
	MappingAccountsPayable,
	MappingSalesRevenue,
	MappingInventory,
	MappingCostOfGoods,
	MappingRetainedEarnings,
	MappingOpeningBalanceEquity,
}

// IsValidType reports whether t is a known mapping role.
func IsValidType(t MappingType) bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}

// AccountMapping links a semantic role to a ledger account for one company.
// Exactly one default mapping exists per (company, type).
type AccountMapping struct {
	ID        int64       `json:"id"`
	CompanyID int64       `json:"company_id"`
	Type      MappingType `json:"mapping_type"`
	AccountID int64       `json:"account_id"`
	IsDefault bool        `json:"is_default"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
