package ar

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks how much of an invoice has been settled.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

var (
	// ErrCustomerNotFound indicates a missing customer.
	ErrCustomerNotFound = errors.New("ar: customer not found")
	// ErrInvoiceNotFound indicates a missing sales invoice.
	ErrInvoiceNotFound = errors.New("ar: invoice not found")
	// ErrInvoicePaid indicates the invoice has no outstanding amount.
	ErrInvoicePaid = errors.New("ar: invoice already fully paid")
	// ErrOverpayment indicates the payment exceeds the amount due.
	ErrOverpayment = errors.New("ar: payment exceeds amount due")
	// ErrNonPositiveAmount indicates a zero or negative payment amount.
	ErrNonPositiveAmount = errors.New("ar: amount must be positive")
)

// Customer is a party that owes the company money.
type Customer struct {
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

// SalesInvoice carries the receivable amounts for one sale. AmountDue is
// always TotalAmount minus AmountPaid; the repository updates the three
// together inside the payment transaction.
type SalesInvoice struct {
	ID            int64           `json:"id"`
	CompanyID     int64           `json:"company_id"`
	CustomerID    int64           `json:"customer_id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Payment records one settlement applied to one invoice. The ID doubles as
// the ledger posting reference, which makes the journal side idempotent.
type Payment struct {
	ID         uuid.UUID       `json:"id"`
	CompanyID  int64           `json:"company_id"`
	CustomerID int64           `json:"customer_id"`
	InvoiceID  int64           `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	PaidAt     time.Time       `json:"paid_at"`
	CreatedBy  int64           `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CreateCustomerInput captures a new customer plus an optional opening
// receivable carried in from a previous system.
type CreateCustomerInput struct {
	CompanyID      int64
	Name           string
	Email          string
	Phone          string
	OpeningBalance decimal.Decimal
	ActorID        int64
}

// Validate checks required customer fields.
func (in CreateCustomerInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("ar: company id required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("ar: customer name required")
	}
	if in.OpeningBalance.IsNegative() {
		return errors.New("ar: opening balance cannot be negative")
	}
	return nil
}

// RecordPaymentInput applies one payment against one invoice.
type RecordPaymentInput struct {
	CompanyID int64
	InvoiceID int64
	Amount    decimal.Decimal
	Method    string
	PaidAt    time.Time
	ActorID   int64
}

// SettleInput applies a lump sum across the listed invoices in the order
// given. Callers wanting oldest-first pass the IDs in that order.
type SettleInput struct {
	CompanyID  int64
	CustomerID int64
	Amount     decimal.Decimal
	InvoiceIDs []int64
	Method     string
	ActorID    int64
}

// Settlement summarises a bulk settlement run. Remaining is the portion of
// the lump sum that no listed invoice could absorb.
type Settlement struct {
	SettledInvoices int             `json:"settled_invoices"`
	PaymentsCreated int             `json:"payments_created"`
	Allocated       decimal.Decimal `json:"allocated"`
	Remaining       decimal.Decimal `json:"remaining"`
	Payments        []Payment       `json:"payments"`
	Skipped         []int64         `json:"skipped,omitempty"`
}
