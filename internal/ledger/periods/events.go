package periods

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/journal"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/mappings"
)

const eventReferenceType = "LEDGER_EVENT"

// Poster is the posting engine port the event consumer drives.
type Poster interface {
	Post(ctx context.Context, in journal.PostingInput) (journal.Posting, error)
}

// EventProcessor turns pending ledger events into journal entries. The
// posting engine's reference idempotency makes reprocessing an event safe:
// a second run finds the reference already posted and changes nothing.
type EventProcessor struct {
	repo     Repository
	resolver mappings.Resolver
	poster   Poster
	logger   *slog.Logger
}

func NewEventProcessor(logger *slog.Logger, repo Repository, resolver mappings.Resolver, poster Poster) *EventProcessor {
	return &EventProcessor{repo: repo, resolver: resolver, poster: poster, logger: logger}
}

// ProcessPending consumes up to limit pending events, marking each
// PROCESSED or FAILED. It returns the number processed successfully.
func (p *EventProcessor) ProcessPending(ctx context.Context, limit int) (int, error) {
	events, err := p.repo.ListPendingEvents(ctx, limit)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, ev := range events {
		if err := p.Process(ctx, ev); err != nil {
			p.logger.Error("process ledger event",
				slog.String("event_id", ev.ID.String()),
				slog.String("kind", string(ev.Kind)),
				slog.Any("error", err))
			if markErr := p.repo.MarkEventFailed(ctx, ev.ID, err.Error()); markErr != nil {
				return processed, markErr
			}
			continue
		}
		if err := p.repo.MarkEventProcessed(ctx, ev.ID, ev.EffectiveDate); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// Process posts the entries for one event.
//
// CLOSING reverses every snapshotted balance, zeroing the books as of the
// period end. OPENING re-establishes the carried-forward balance sheet
// accounts on the next day. In both cases the residual lands on retained
// earnings, which for the opening event equals the period's net income.
func (p *EventProcessor) Process(ctx context.Context, ev LedgerEvent) error {
	legs, err := p.buildLegs(ctx, ev)
	if err != nil {
		return err
	}
	if len(legs) == 0 {
		return nil
	}

	kind := journal.DocKindFiscalClosing
	description := fmt.Sprintf("Fiscal closing entries for period %d", ev.PeriodID)
	if ev.Kind == EventKindOpening {
		kind = journal.DocKindFiscalOpening
		description = fmt.Sprintf("Fiscal opening entries for period %d", ev.PeriodID)
	}

	_, err = p.poster.Post(ctx, journal.PostingInput{
		CompanyID:     ev.CompanyID,
		Date:          ev.EffectiveDate,
		Description:   description,
		ReferenceID:   ev.ID,
		ReferenceType: eventReferenceType,
		DocKind:       kind,
		IsAutomated:   true,
		Legs:          legs,
	})
	return err
}

func (p *EventProcessor) buildLegs(ctx context.Context, ev LedgerEvent) ([]journal.Leg, error) {
	retainedID, err := p.resolver.Resolve(ctx, ev.CompanyID, mappings.MappingRetainedEarnings)
	if err != nil {
		return nil, fmt.Errorf("periods: resolve retained earnings: %w", err)
	}

	reverse := ev.Kind == EventKindClosing
	var legs []journal.Leg
	residual := decimal.Zero
	for _, snap := range ev.Snapshot {
		if snap.AccountID == retainedID || snap.Balance.IsZero() {
			continue
		}
		delta := snap.Balance
		if reverse {
			delta = delta.Neg()
		}
		legs = append(legs, legFromDelta(snap.AccountID, delta))
		residual = residual.Add(delta)
	}
	if !residual.IsZero() {
		legs = append(legs, legFromDelta(retainedID, residual.Neg()))
	}
	if len(legs) == 1 {
		// A lone retained earnings balance has nothing to pair with.
		return nil, fmt.Errorf("periods: event %s produced a single leg", ev.ID)
	}
	return legs, nil
}

func legFromDelta(accountID int64, delta decimal.Decimal) journal.Leg {
	leg := journal.Leg{AccountID: accountID}
	if delta.IsPositive() {
		leg.Debit = delta
	} else {
		leg.Credit = delta.Neg()
	}
	return leg
}
