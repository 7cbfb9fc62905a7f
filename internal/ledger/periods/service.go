package periods

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	ledgererr "github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
	internalShared "github.com/meridian-erp/meridian-ledger/internal/shared"
)

// defaultCloseTimeout bounds the close transaction. Snapshotting a large
// chart of accounts must not hold row locks indefinitely.
const defaultCloseTimeout = 30 * time.Second

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Enqueuer schedules asynchronous consumption of pending ledger events.
type Enqueuer interface {
	EnqueueLedgerEvents(ctx context.Context, companyID int64) error
}

// Service manages fiscal periods. Close is one-way: it snapshots balances,
// records CLOSING and OPENING events, and marks the period closed in a
// single transaction. The heavy journal work happens later when the event
// consumer picks the events up.
type Service struct {
	repo         Repository
	audit        AuditPort
	enqueuer     Enqueuer
	logger       *slog.Logger
	closeTimeout time.Duration
	now          func() time.Time
}

func NewService(logger *slog.Logger, repo Repository, audit AuditPort, enqueuer Enqueuer) *Service {
	return &Service{
		repo:         repo,
		audit:        audit,
		enqueuer:     enqueuer,
		logger:       logger,
		closeTimeout: defaultCloseTimeout,
		now:          time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithCloseTimeout overrides the close transaction deadline.
func (s *Service) WithCloseTimeout(d time.Duration) {
	if d > 0 {
		s.closeTimeout = d
	}
}

func (s *Service) Create(ctx context.Context, in CreatePeriodInput) (FiscalPeriod, error) {
	if err := in.Validate(); err != nil {
		return FiscalPeriod{}, err
	}
	return s.repo.Create(ctx, in)
}

func (s *Service) List(ctx context.Context, companyID int64) ([]FiscalPeriod, error) {
	return s.repo.List(ctx, companyID)
}

func (s *Service) Get(ctx context.Context, companyID, periodID int64) (FiscalPeriod, error) {
	return s.repo.Get(ctx, companyID, periodID)
}

// Close locks the period row, snapshots nonzero balances, writes the two
// ledger events, and flips is_closed. Closing an already-closed period
// returns ErrAlreadyClosed. There is no reopen.
func (s *Service) Close(ctx context.Context, companyID, periodID, actorID int64) (FiscalPeriod, error) {
	ctx, cancel := context.WithTimeout(ctx, s.closeTimeout)
	defer cancel()

	var period FiscalPeriod
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		period, err = tx.GetPeriodForUpdate(ctx, companyID, periodID)
		if err != nil {
			return err
		}
		if period.IsClosed {
			return ledgererr.ErrAlreadyClosed
		}

		snapshot, err := tx.SnapshotNonzeroBalances(ctx, companyID)
		if err != nil {
			return err
		}

		now := s.now()
		closing := LedgerEvent{
			ID:            uuid.New(),
			CompanyID:     companyID,
			PeriodID:      periodID,
			Kind:          EventKindClosing,
			EffectiveDate: period.EndDate,
			Snapshot:      snapshot,
			Status:        EventStatusPending,
			CreatedAt:     now,
		}
		if err := tx.InsertEvent(ctx, closing); err != nil {
			return err
		}

		opening := LedgerEvent{
			ID:            uuid.New(),
			CompanyID:     companyID,
			PeriodID:      periodID,
			Kind:          EventKindOpening,
			EffectiveDate: period.EndDate.AddDate(0, 0, 1),
			Snapshot:      carryForwardOnly(snapshot),
			Status:        EventStatusPending,
			CreatedAt:     now,
		}
		if err := tx.InsertEvent(ctx, opening); err != nil {
			return err
		}

		if err := tx.MarkClosed(ctx, periodID, actorID, now); err != nil {
			return err
		}
		period.IsClosed = true
		period.ClosedBy = &actorID
		period.ClosedAt = &now
		return nil
	})
	if err != nil {
		return FiscalPeriod{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  actorID,
			Action:   "period.close",
			Entity:   "fiscal_period",
			EntityID: strconv.FormatInt(periodID, 10),
			Meta:     map[string]any{"period_name": period.Name},
			At:       s.now(),
		})
	}

	// Best effort. The cron sweep picks up pending events if the enqueue
	// is lost.
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueLedgerEvents(context.WithoutCancel(ctx), companyID); err != nil {
			s.logger.Warn("enqueue ledger events", slog.Int64("company_id", companyID), slog.Any("error", err))
		}
	}
	return period, nil
}

// carryForwardOnly keeps balance sheet accounts. Income statement accounts
// do not carry into a new fiscal year; the closing event folds them into
// retained earnings instead.
func carryForwardOnly(snapshot []BalanceSnapshot) []BalanceSnapshot {
	out := make([]BalanceSnapshot, 0, len(snapshot))
	for _, s := range snapshot {
		if s.Type.CarriesForward() {
			out = append(out, s)
		}
	}
	return out
}
