package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
)

// Leg describes one side of a posting request. Exactly one of Debit/Credit
// must be positive.
type Leg struct {
	AccountID        int64
	Debit            decimal.Decimal
	Credit           decimal.Decimal
	CounterpartyType *CounterpartyType
	CounterpartyID   *int64
}

// PostingInput groups fields required to commit a balanced entry set.
type PostingInput struct {
	CompanyID     int64
	Date          time.Time
	Description   string
	ReferenceID   uuid.UUID
	ReferenceType string
	DocKind       DocumentKind
	CreatedBy     int64
	IsAutomated   bool
	Legs          []Leg
}

// Validate ensures the posting meets the balance invariant before any write.
func (in PostingInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("journal: company required")
	}
	if in.ReferenceID == uuid.Nil {
		return errors.New("journal: reference id required")
	}
	if in.ReferenceType == "" {
		return errors.New("journal: reference type required")
	}
	if in.DocKind == "" {
		return errors.New("journal: document kind required")
	}
	if len(in.Legs) < 2 {
		return shared.ErrTooFewLegs
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, leg := range in.Legs {
		if leg.AccountID == 0 {
			return fmt.Errorf("journal: leg %d missing account", idx)
		}
		if leg.Debit.IsNegative() || leg.Credit.IsNegative() {
			return fmt.Errorf("journal: leg %d negative amount", idx)
		}
		if leg.Debit.IsPositive() && leg.Credit.IsPositive() {
			return shared.ErrTwoSidedLeg
		}
		if leg.Debit.IsZero() && leg.Credit.IsZero() {
			return shared.ErrZeroAmount
		}
		debit = debit.Add(leg.Debit)
		credit = credit.Add(leg.Credit)
	}
	if !debit.Equal(credit) {
		return shared.ErrUnbalanced
	}
	return nil
}

// Delta returns the signed balance effect of the leg.
func (l Leg) Delta() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}
