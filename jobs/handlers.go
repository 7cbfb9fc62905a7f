package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/journal"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/mappings"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/outbox"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/periods"
	ledgererr "github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
	jobmetrics "github.com/meridian-erp/meridian-ledger/internal/jobs"
)

// Poster is the posting engine port the worker drives.
type Poster interface {
	Post(ctx context.Context, in journal.PostingInput) (journal.Posting, error)
}

// EventDrainer consumes pending fiscal close events.
type EventDrainer interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// PostingMetrics counts posting outcomes per document kind.
type PostingMetrics interface {
	ObservePosting(docKind string, err error)
}

// OutboxStore lists and settles durable posting intents.
type OutboxStore interface {
	ListPending(ctx context.Context, limit int) ([]outbox.Entry, error)
	MarkDispatched(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// Handlers owns the asynq task handlers and their dependencies.
type Handlers struct {
	poster   Poster
	resolver mappings.Resolver
	events   EventDrainer
	metrics  *jobmetrics.Metrics
	postings PostingMetrics
	outbox   OutboxStore
	logger   *slog.Logger
}

func NewHandlers(logger *slog.Logger, poster Poster, resolver mappings.Resolver, events EventDrainer, metrics *jobmetrics.Metrics, postings PostingMetrics, store OutboxStore) *Handlers {
	return &Handlers{poster: poster, resolver: resolver, events: events, metrics: metrics, postings: postings, outbox: store, logger: logger}
}

// HandleLedgerPost resolves the payload's semantic roles and posts the
// entry. Validation failures skip retry: redelivering an unbalanced or
// unmappable posting cannot succeed.
func (h *Handlers) HandleLedgerPost(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track("ledger_post")
	var payload LedgerPostPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("ledger post payload: %v: %w", err, asynq.SkipRetry))
	}
	if err := h.postPayload(ctx, payload); err != nil {
		return tracker.End(h.classify(err))
	}
	return tracker.End(nil)
}

// postPayload turns the role-addressed payload into a concrete posting.
func (h *Handlers) postPayload(ctx context.Context, payload LedgerPostPayload) error {
	debitID, err := h.resolver.Resolve(ctx, payload.CompanyID, payload.DebitRole)
	if err != nil {
		h.observePosting(payload.DocKind, err)
		return err
	}
	creditID, err := h.resolver.Resolve(ctx, payload.CompanyID, payload.CreditRole)
	if err != nil {
		h.observePosting(payload.DocKind, err)
		return err
	}

	debit := journal.Leg{AccountID: debitID, Debit: payload.Amount}
	credit := journal.Leg{AccountID: creditID, Credit: payload.Amount}
	if payload.CounterpartyID != nil {
		// Stamp the counterparty on the AR/AP side so per-party statements
		// count the settlement exactly once.
		switch {
		case isCounterpartyRole(payload.DebitRole):
			debit.CounterpartyType = payload.CounterpartyType
			debit.CounterpartyID = payload.CounterpartyID
		case isCounterpartyRole(payload.CreditRole):
			credit.CounterpartyType = payload.CounterpartyType
			credit.CounterpartyID = payload.CounterpartyID
		}
	}

	posting, err := h.poster.Post(ctx, journal.PostingInput{
		CompanyID:     payload.CompanyID,
		Date:          payload.Date,
		Description:   payload.Description,
		ReferenceID:   payload.ReferenceID,
		ReferenceType: payload.ReferenceType,
		DocKind:       payload.DocKind,
		CreatedBy:     payload.ActorID,
		IsAutomated:   true,
		Legs:          []journal.Leg{debit, credit},
	})
	h.observePosting(payload.DocKind, err)
	if err != nil {
		return err
	}
	if posting.Duplicate {
		h.logger.Info("ledger post already applied",
			slog.String("reference_id", payload.ReferenceID.String()),
			slog.String("reference_type", payload.ReferenceType))
	}
	return nil
}

// HandleLedgerOutbox replays pending posting intents. The producing service
// normally enqueues right after commit; rows still pending here mean that
// enqueue was lost, so the sweep posts them directly. Permanent failures
// are parked as FAILED, transient ones stay pending for the next run.
func (h *Handlers) HandleLedgerOutbox(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track("ledger_outbox")
	if h.outbox == nil {
		return tracker.End(nil)
	}
	entries, err := h.outbox.ListPending(ctx, 100)
	if err != nil {
		return tracker.End(err)
	}
	replayed := 0
	for _, entry := range entries {
		var payload LedgerPostPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			if err := h.outbox.MarkFailed(ctx, entry.ID, "payload: "+err.Error()); err != nil {
				return tracker.End(err)
			}
			continue
		}
		if err := h.postPayload(ctx, payload); err != nil {
			if errors.Is(h.classify(err), asynq.SkipRetry) {
				if err := h.outbox.MarkFailed(ctx, entry.ID, err.Error()); err != nil {
					return tracker.End(err)
				}
				continue
			}
			h.logger.Warn("outbox replay",
				slog.String("outbox_id", entry.ID.String()),
				slog.Any("error", err))
			continue
		}
		if err := h.outbox.MarkDispatched(ctx, entry.ID); err != nil {
			return tracker.End(err)
		}
		replayed++
	}
	if replayed > 0 {
		h.logger.Info("ledger outbox replayed", slog.Int("count", replayed))
	}
	return tracker.End(nil)
}

// HandleLedgerEvents drains pending close events. The cron sweep enqueues
// this periodically so events survive a lost post-close enqueue.
func (h *Handlers) HandleLedgerEvents(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track("ledger_events")
	var payload LedgerEventsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("ledger events payload: %v: %w", err, asynq.SkipRetry))
	}
	processed, err := h.events.ProcessPending(ctx, 100)
	if err != nil {
		return tracker.End(err)
	}
	if processed > 0 {
		h.logger.Info("ledger events processed", slog.Int("count", processed))
	}
	return tracker.End(nil)
}

// classify turns permanent posting failures into SkipRetry so asynq does
// not redeliver them.
func (h *Handlers) classify(err error) error {
	for _, permanent := range []error{
		ledgererr.ErrUnbalanced,
		ledgererr.ErrTooFewLegs,
		ledgererr.ErrZeroAmount,
		ledgererr.ErrTwoSidedLeg,
		ledgererr.ErrMappingNotFound,
		ledgererr.ErrPeriodClosed,
	} {
		if errors.Is(err, permanent) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
	}
	return err
}

func (h *Handlers) observePosting(kind journal.DocumentKind, err error) {
	if h.postings == nil {
		return
	}
	h.postings.ObservePosting(string(kind), err)
}

func isCounterpartyRole(role mappings.MappingType) bool {
	return role == mappings.MappingAccountsReceivable || role == mappings.MappingAccountsPayable
}

// Hooks for periods.Service and the AR/AP services to enqueue through the
// shared client without importing asynq directly.

// EnqueueLedgerPost submits a posting task.
func (c *Client) EnqueueLedgerPost(ctx context.Context, payload LedgerPostPayload) error {
	task, err := NewLedgerPostTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}

// EnqueueLedgerEvents submits an event drain task.
func (c *Client) EnqueueLedgerEvents(ctx context.Context, companyID int64) error {
	task, err := NewLedgerEventsTask(LedgerEventsPayload{CompanyID: companyID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}

var _ periods.Enqueuer = (*Client)(nil)
