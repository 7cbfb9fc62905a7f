package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/journal"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/mappings"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueLedger carries ledger postings. Kept separate so a burst of
	// settlements cannot starve other work.
	QueueLedger = "ledger"

	// TaskLedgerPost posts one two-legged journal entry from semantic roles.
	TaskLedgerPost = "ledger:post"
	// TaskLedgerEvents drains pending fiscal close events.
	TaskLedgerEvents = "ledger:events"
	// TaskLedgerOutbox replays posting intents whose enqueue was lost
	// between the payment commit and the queue.
	TaskLedgerOutbox = "ledger:outbox"
)

// ledgerPostMaxRetry bounds redelivery of a failed posting. With the
// exponential backoff below the final attempt lands about three seconds
// after the first.
const ledgerPostMaxRetry = 4

// LedgerPostPayload describes a simple debit-one-credit-one posting by
// semantic account role. The worker resolves roles to concrete accounts at
// processing time, so remapping an account does not strand queued tasks.
type LedgerPostPayload struct {
	CompanyID        int64                     `json:"company_id"`
	ReferenceID      uuid.UUID                 `json:"reference_id"`
	ReferenceType    string                    `json:"reference_type"`
	DocKind          journal.DocumentKind      `json:"doc_kind"`
	Date             time.Time                 `json:"date"`
	Description      string                    `json:"description"`
	Amount           decimal.Decimal           `json:"amount"`
	DebitRole        mappings.MappingType      `json:"debit_role"`
	CreditRole       mappings.MappingType      `json:"credit_role"`
	CounterpartyType *journal.CounterpartyType `json:"counterparty_type,omitempty"`
	CounterpartyID   *int64                    `json:"counterparty_id,omitempty"`
	ActorID          int64                     `json:"actor_id"`
}

// LedgerEventsPayload scopes an event drain to one company.
type LedgerEventsPayload struct {
	CompanyID int64 `json:"company_id"`
}

// NewLedgerPostTask constructs the posting task with its retry policy.
func NewLedgerPostTask(payload LedgerPostPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerPost, data,
		asynq.Queue(QueueLedger),
		asynq.MaxRetry(ledgerPostMaxRetry),
	), nil
}

// NewLedgerEventsTask constructs the event drain task.
func NewLedgerEventsTask(payload LedgerEventsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerEvents, data,
		asynq.Queue(QueueLedger),
		asynq.MaxRetry(ledgerPostMaxRetry),
	), nil
}

// NewLedgerOutboxTask constructs the outbox sweep task.
func NewLedgerOutboxTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerOutbox, nil, asynq.Queue(QueueLedger))
}

// RetryDelay backs off exponentially from 200ms, doubling per attempt.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return 200 * time.Millisecond * (1 << n)
}
