package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind tags a journal entry with the business meaning of its source
// document. It is stored at posting time, never inferred later.
type DocumentKind string

const (
	DocKindSalePayment     DocumentKind = "SALE_PAYMENT"
	DocKindSupplierPayment DocumentKind = "SUPPLIER_PAYMENT"
	DocKindOpeningBalance  DocumentKind = "OPENING_BALANCE"
	DocKindFiscalClosing   DocumentKind = "FISCAL_CLOSING"
	DocKindFiscalOpening   DocumentKind = "FISCAL_OPENING"
	DocKindManual          DocumentKind = "MANUAL"
)

// BypassesPeriodLock reports whether the kind may post into a closed period.
// Year-end closing entries are dated on the period end, which is already
// locked by the time the event consumer runs.
func (k DocumentKind) BypassesPeriodLock() bool {
	return k == DocKindFiscalClosing
}

// SystemOnly reports whether the kind is reserved for internal flows. Fiscal
// close entries come from the event consumer; a caller-supplied closing kind
// would ride its period lock bypass straight into a closed year.
func (k DocumentKind) SystemOnly() bool {
	return k == DocKindFiscalClosing || k == DocKindFiscalOpening
}

// IsValidDocumentKind reports whether k is a known kind.
func IsValidDocumentKind(k DocumentKind) bool {
	switch k {
	case DocKindSalePayment, DocKindSupplierPayment, DocKindOpeningBalance,
		DocKindFiscalClosing, DocKindFiscalOpening, DocKindManual:
		return true
	}
	return false
}

// CounterpartyType identifies the party a leg settles against.
type CounterpartyType string

const (
	CounterpartyCustomer CounterpartyType = "CUSTOMER"
	CounterpartySupplier CounterpartyType = "SUPPLIER"
)

// Entry is one debit-or-credit leg in the ledger. Entries are immutable once
// written; corrections are new reversing entries.
type Entry struct {
	ID               int64             `json:"id"`
	CompanyID        int64             `json:"company_id"`
	AccountID        int64             `json:"account_id"`
	Description      string            `json:"description"`
	Debit            decimal.Decimal   `json:"debit"`
	Credit           decimal.Decimal   `json:"credit"`
	EntryDate        time.Time         `json:"entry_date"`
	ReferenceID      uuid.UUID         `json:"reference_id"`
	ReferenceType    string            `json:"reference_type"`
	DocKind          DocumentKind      `json:"doc_kind"`
	CounterpartyType *CounterpartyType `json:"counterparty_type,omitempty"`
	CounterpartyID   *int64            `json:"counterparty_id,omitempty"`
	EntryNumber      string            `json:"entry_number"`
	CreatedBy        int64             `json:"created_by"`
	IsAutomated      bool              `json:"is_automated"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Posting is the result of committing one balanced set of legs.
type Posting struct {
	EntryNumberBase string  `json:"entry_number_base"`
	Entries         []Entry `json:"entries"`
	// Duplicate is true when the reference had already been posted and the
	// existing entries were returned instead of new ones.
	Duplicate bool `json:"duplicate"`
}
