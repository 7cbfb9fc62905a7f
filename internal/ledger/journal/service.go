package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
	internalShared "github.com/meridian-erp/meridian-ledger/internal/shared"
)

// maxNumberAttempts bounds the retry loop on entry number collisions.
const maxNumberAttempts = 3

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service is the posting engine. It commits balanced entry sets atomically,
// maintains account running balances, and guarantees at-most-once posting
// per (reference_id, reference_type).
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post commits the posting in a single transaction: validation, idempotency
// check, entry number generation, leg inserts, and balance increments.
// Posting an already-posted reference is a no-op returning the existing
// entries with Duplicate set.
func (s *Service) Post(ctx context.Context, in PostingInput) (Posting, error) {
	if err := in.Validate(); err != nil {
		return Posting{}, err
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	var posting Posting
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		posting = Posting{}
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			closed, err := tx.PeriodClosedOn(ctx, in.CompanyID, in.Date)
			if err != nil {
				return err
			}
			if closed && !in.DocKind.BypassesPeriodLock() {
				return shared.ErrPeriodClosed
			}
			posted, err := tx.ReferencePosted(ctx, in.CompanyID, in.ReferenceID, in.ReferenceType)
			if err != nil {
				return err
			}
			if posted {
				posting.Duplicate = true
				return nil
			}
			max, err := tx.MaxSequence(ctx, in.CompanyID, in.Date.Year())
			if err != nil {
				return err
			}
			base := FormatEntryNumber(in.Date.Year(), max+1)
			posting.EntryNumberBase = base
			for i, leg := range in.Legs {
				entry := Entry{
					CompanyID:        in.CompanyID,
					AccountID:        leg.AccountID,
					Description:      in.Description,
					Debit:            leg.Debit,
					Credit:           leg.Credit,
					EntryDate:        in.Date,
					ReferenceID:      in.ReferenceID,
					ReferenceType:    in.ReferenceType,
					DocKind:          in.DocKind,
					CounterpartyType: leg.CounterpartyType,
					CounterpartyID:   leg.CounterpartyID,
					EntryNumber:      fmt.Sprintf("%s-%s", base, LegSuffix(leg, i, len(in.Legs))),
					CreatedBy:        in.CreatedBy,
					IsAutomated:      in.IsAutomated,
				}
				if err := tx.InsertEntry(ctx, &entry); err != nil {
					return err
				}
				if err := tx.AddToBalance(ctx, in.CompanyID, leg.AccountID, leg.Delta()); err != nil {
					return err
				}
				posting.Entries = append(posting.Entries, entry)
			}
			return nil
		})
		if errors.Is(err, shared.ErrEntryNumberTaken) {
			// Another poster won the sequence; rerun the whole transaction
			// with a fresh advisory read.
			continue
		}
		break
	}
	if err != nil {
		return Posting{}, err
	}

	if posting.Duplicate {
		existing, err := s.repo.ListByReference(ctx, in.CompanyID, in.ReferenceID, in.ReferenceType)
		if err != nil {
			return Posting{}, err
		}
		posting.Entries = existing
		if len(existing) > 0 {
			posting.EntryNumberBase = entryNumberBase(existing[0].EntryNumber)
		}
		return posting, nil
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  in.CreatedBy,
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: posting.EntryNumberBase,
			Meta: map[string]any{
				"reference_id":   in.ReferenceID.String(),
				"reference_type": in.ReferenceType,
				"doc_kind":       string(in.DocKind),
				"legs":           len(in.Legs),
			},
			At: s.now(),
		})
	}
	return posting, nil
}

// ListByReference returns all legs of one logical transaction.
func (s *Service) ListByReference(ctx context.Context, companyID int64, referenceID uuid.UUID, referenceType string) ([]Entry, error) {
	return s.repo.ListByReference(ctx, companyID, referenceID, referenceType)
}

// List returns recent entries for inspection.
func (s *Service) List(ctx context.Context, companyID int64, limit, offset int) ([]Entry, error) {
	return s.repo.List(ctx, companyID, limit, offset)
}

func entryNumberBase(entryNumber string) string {
	for i := len(entryNumber) - 1; i >= 0; i-- {
		if entryNumber[i] == '-' {
			return entryNumber[:i]
		}
	}
	return entryNumber
}
