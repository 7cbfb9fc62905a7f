package ap

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrSupplierNotFound indicates a missing supplier.
	ErrSupplierNotFound = errors.New("ap: supplier not found")
	// ErrNonPositiveAmount indicates a zero or negative payment amount.
	ErrNonPositiveAmount = errors.New("ap: amount must be positive")
	// ErrOverpayment indicates the payment exceeds the outstanding balance.
	ErrOverpayment = errors.New("ap: payment exceeds outstanding balance")
)

// Supplier is a party the company owes money. Supplier statements render
// credit-normal: the outstanding balance grows on the credit side.
type Supplier struct {
	ID                 int64           `json:"id"`
	CompanyID          int64           `json:"company_id"`
	Name               string          `json:"name"`
	Email              string          `json:"email,omitempty"`
	Phone              string          `json:"phone,omitempty"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SupplierPayment records one outgoing settlement. The ID doubles as the
// ledger posting reference.
type SupplierPayment struct {
	ID         uuid.UUID       `json:"id"`
	CompanyID  int64           `json:"company_id"`
	SupplierID int64           `json:"supplier_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	PaidAt     time.Time       `json:"paid_at"`
	CreatedBy  int64           `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CreateSupplierInput captures a new supplier plus an optional opening
// payable carried in from a previous system.
type CreateSupplierInput struct {
	CompanyID      int64
	Name           string
	Email          string
	Phone          string
	OpeningBalance decimal.Decimal
	ActorID        int64
}

// Validate checks required supplier fields.
func (in CreateSupplierInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("ap: company id required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("ap: supplier name required")
	}
	if in.OpeningBalance.IsNegative() {
		return errors.New("ap: opening balance cannot be negative")
	}
	return nil
}

// RecordPaymentInput pays down a supplier balance.
type RecordPaymentInput struct {
	CompanyID  int64
	SupplierID int64
	Amount     decimal.Decimal
	Method     string
	PaidAt     time.Time
	ActorID    int64
}
