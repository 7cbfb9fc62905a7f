package periods

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/accounts"
)

// FiscalPeriod is a bounded accounting interval for one company. Closing is
// a one-way transition; no reopen exists.
type FiscalPeriod struct {
	ID        int64      `json:"id"`
	CompanyID int64      `json:"company_id"`
	Name      string     `json:"period_name"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	IsClosed  bool       `json:"is_closed"`
	ClosedBy  *int64     `json:"closed_by,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// EventKind enumerates ledger event types emitted on close.
type EventKind string

const (
	EventKindClosing EventKind = "CLOSING"
	EventKindOpening EventKind = "OPENING"
)

// EventStatus tracks asynchronous consumption of a ledger event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "PENDING"
	EventStatusProcessed EventStatus = "PROCESSED"
	EventStatusFailed    EventStatus = "FAILED"
)

// BalanceSnapshot captures one account balance at close time.
type BalanceSnapshot struct {
	AccountID int64                `json:"account_id"`
	Code      string               `json:"code"`
	Type      accounts.AccountType `json:"type"`
	Balance   decimal.Decimal      `json:"balance"`
}

// LedgerEvent is a queued close-time event consumed asynchronously by the
// posting engine. Closing a fiscal year must not block on generating the
// resulting journal entries.
type LedgerEvent struct {
	ID            uuid.UUID         `json:"id"`
	CompanyID     int64             `json:"company_id"`
	PeriodID      int64             `json:"period_id"`
	Kind          EventKind         `json:"kind"`
	EffectiveDate time.Time         `json:"effective_date"`
	Snapshot      []BalanceSnapshot `json:"snapshot"`
	Status        EventStatus       `json:"status"`
	LastError     string            `json:"last_error,omitempty"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// CreatePeriodInput captures validation rules for new periods.
type CreatePeriodInput struct {
	CompanyID int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Validate ensures the create period input is coherent.
func (in CreatePeriodInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("periods: company id required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("periods: name required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return errors.New("periods: start and end date required")
	}
	if in.StartDate.After(in.EndDate) {
		return errors.New("periods: start date cannot be after end date")
	}
	return nil
}

// ErrPeriodOverlap indicates the requested period conflicts with an existing range.
var ErrPeriodOverlap = errors.New("periods: period overlaps existing range")
