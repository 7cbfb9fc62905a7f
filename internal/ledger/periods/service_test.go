package periods

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/accounts"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/journal"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/mappings"
	ledgererr "github.com/meridian-erp/meridian-ledger/internal/ledger/shared"
	internalShared "github.com/meridian-erp/meridian-ledger/internal/shared"
)

type fakePeriodRepo struct {
	periods  map[int64]FiscalPeriod
	balances []BalanceSnapshot
	events   []LedgerEvent
	statuses map[uuid.UUID]EventStatus
}

func newFakePeriodRepo() *fakePeriodRepo {
	return &fakePeriodRepo{
		periods:  make(map[int64]FiscalPeriod),
		statuses: make(map[uuid.UUID]EventStatus),
	}
}

func (f *fakePeriodRepo) List(_ context.Context, companyID int64) ([]FiscalPeriod, error) {
	var out []FiscalPeriod
	for _, p := range f.periods {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePeriodRepo) Get(_ context.Context, companyID, periodID int64) (FiscalPeriod, error) {
	p, ok := f.periods[periodID]
	if !ok || p.CompanyID != companyID {
		return FiscalPeriod{}, ledgererr.ErrPeriodNotFound
	}
	return p, nil
}

func (f *fakePeriodRepo) Create(_ context.Context, in CreatePeriodInput) (FiscalPeriod, error) {
	p := FiscalPeriod{
		ID:        int64(len(f.periods) + 1),
		CompanyID: in.CompanyID,
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	}
	f.periods[p.ID] = p
	return p, nil
}

func (f *fakePeriodRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, f)
}

func (f *fakePeriodRepo) GetPeriodForUpdate(ctx context.Context, companyID, periodID int64) (FiscalPeriod, error) {
	return f.Get(ctx, companyID, periodID)
}

func (f *fakePeriodRepo) SnapshotNonzeroBalances(_ context.Context, _ int64) ([]BalanceSnapshot, error) {
	return f.balances, nil
}

func (f *fakePeriodRepo) MarkClosed(_ context.Context, periodID, actorID int64, at time.Time) error {
	p := f.periods[periodID]
	p.IsClosed = true
	p.ClosedBy = &actorID
	p.ClosedAt = &at
	f.periods[periodID] = p
	return nil
}

func (f *fakePeriodRepo) InsertEvent(_ context.Context, ev LedgerEvent) error {
	f.events = append(f.events, ev)
	f.statuses[ev.ID] = ev.Status
	return nil
}

func (f *fakePeriodRepo) ListPendingEvents(_ context.Context, limit int) ([]LedgerEvent, error) {
	var out []LedgerEvent
	for _, ev := range f.events {
		if f.statuses[ev.ID] == EventStatusPending && len(out) < limit {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakePeriodRepo) MarkEventProcessed(_ context.Context, eventID uuid.UUID, _ time.Time) error {
	f.statuses[eventID] = EventStatusProcessed
	return nil
}

func (f *fakePeriodRepo) MarkEventFailed(_ context.Context, eventID uuid.UUID, _ string) error {
	f.statuses[eventID] = EventStatusFailed
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, internalShared.AuditLog) error { return nil }

func seedClosablePeriod(repo *fakePeriodRepo) FiscalPeriod {
	p := FiscalPeriod{
		ID:        1,
		CompanyID: 7,
		Name:      "FY2025",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	repo.periods[p.ID] = p
	return p
}

func TestCloseSnapshotsAndEmitsEvents(t *testing.T) {
	repo := newFakePeriodRepo()
	period := seedClosablePeriod(repo)
	repo.balances = []BalanceSnapshot{
		{AccountID: 1, Code: "1000", Type: accounts.AccountTypeAsset, Balance: decimal.NewFromInt(500)},
		{AccountID: 2, Code: "3000", Type: accounts.AccountTypeEquity, Balance: decimal.NewFromInt(-200)},
		{AccountID: 3, Code: "4000", Type: accounts.AccountTypeRevenue, Balance: decimal.NewFromInt(-300)},
	}

	svc := NewService(slog.Default(), repo, noopAudit{}, nil)
	closed, err := svc.Close(context.Background(), period.CompanyID, period.ID, 42)
	require.NoError(t, err)
	require.True(t, closed.IsClosed)
	require.NotNil(t, closed.ClosedBy)
	require.Equal(t, int64(42), *closed.ClosedBy)

	require.Len(t, repo.events, 2)

	closing := repo.events[0]
	require.Equal(t, EventKindClosing, closing.Kind)
	require.Equal(t, period.EndDate, closing.EffectiveDate)
	require.Len(t, closing.Snapshot, 3)

	opening := repo.events[1]
	require.Equal(t, EventKindOpening, opening.Kind)
	require.Equal(t, period.EndDate.AddDate(0, 0, 1), opening.EffectiveDate)
	require.Len(t, opening.Snapshot, 2)
	for _, snap := range opening.Snapshot {
		require.True(t, snap.Type.CarriesForward(), "income statement account %s leaked into opening event", snap.Code)
	}
}

func TestCloseTwiceFails(t *testing.T) {
	repo := newFakePeriodRepo()
	period := seedClosablePeriod(repo)

	svc := NewService(slog.Default(), repo, noopAudit{}, nil)
	_, err := svc.Close(context.Background(), period.CompanyID, period.ID, 42)
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), period.CompanyID, period.ID, 42)
	require.ErrorIs(t, err, ledgererr.ErrAlreadyClosed)
	require.Len(t, repo.events, 2, "second close must not emit more events")
}

func TestCloseUnknownPeriod(t *testing.T) {
	repo := newFakePeriodRepo()
	svc := NewService(slog.Default(), repo, noopAudit{}, nil)
	_, err := svc.Close(context.Background(), 7, 99, 42)
	require.ErrorIs(t, err, ledgererr.ErrPeriodNotFound)
}

type fakeResolver map[mappings.MappingType]int64

func (f fakeResolver) Resolve(_ context.Context, _ int64, mt mappings.MappingType) (int64, error) {
	id, ok := f[mt]
	if !ok {
		return 0, ledgererr.ErrMappingNotFound
	}
	return id, nil
}

type capturePoster struct {
	inputs []journal.PostingInput
}

func (c *capturePoster) Post(_ context.Context, in journal.PostingInput) (journal.Posting, error) {
	if err := in.Validate(); err != nil {
		return journal.Posting{}, err
	}
	c.inputs = append(c.inputs, in)
	return journal.Posting{}, nil
}

func TestProcessClosingEventReversesBalances(t *testing.T) {
	repo := newFakePeriodRepo()
	resolver := fakeResolver{mappings.MappingRetainedEarnings: 10}
	poster := &capturePoster{}
	proc := NewEventProcessor(slog.Default(), repo, resolver, poster)

	ev := LedgerEvent{
		ID:            uuid.New(),
		CompanyID:     7,
		PeriodID:      1,
		Kind:          EventKindClosing,
		EffectiveDate: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Snapshot: []BalanceSnapshot{
			{AccountID: 1, Type: accounts.AccountTypeAsset, Balance: decimal.NewFromInt(500)},
			{AccountID: 3, Type: accounts.AccountTypeRevenue, Balance: decimal.NewFromInt(-300)},
			{AccountID: 10, Type: accounts.AccountTypeEquity, Balance: decimal.NewFromInt(-200)},
		},
		Status: EventStatusPending,
	}
	require.NoError(t, proc.Process(context.Background(), ev))
	require.Len(t, poster.inputs, 1)

	in := poster.inputs[0]
	require.Equal(t, journal.DocKindFiscalClosing, in.DocKind)
	require.Equal(t, ev.ID, in.ReferenceID)
	require.True(t, in.IsAutomated)
	require.Len(t, in.Legs, 3)

	// The asset balance of 500 reverses into a credit; the retained
	// earnings residual absorbs the rest so the posting balances.
	byAccount := map[int64]journal.Leg{}
	for _, leg := range in.Legs {
		byAccount[leg.AccountID] = leg
	}
	require.True(t, byAccount[1].Credit.Equal(decimal.NewFromInt(500)))
	require.True(t, byAccount[3].Debit.Equal(decimal.NewFromInt(300)))
	require.True(t, byAccount[10].Debit.Equal(decimal.NewFromInt(200)))
}

func TestProcessOpeningEventCarriesForward(t *testing.T) {
	repo := newFakePeriodRepo()
	resolver := fakeResolver{mappings.MappingRetainedEarnings: 10}
	poster := &capturePoster{}
	proc := NewEventProcessor(slog.Default(), repo, resolver, poster)

	// Balance sheet only: asset 500, retained earnings -200. The missing
	// -300 is the year's net income and must land on retained earnings.
	ev := LedgerEvent{
		ID:            uuid.New(),
		CompanyID:     7,
		PeriodID:      1,
		Kind:          EventKindOpening,
		EffectiveDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Snapshot: []BalanceSnapshot{
			{AccountID: 1, Type: accounts.AccountTypeAsset, Balance: decimal.NewFromInt(500)},
			{AccountID: 10, Type: accounts.AccountTypeEquity, Balance: decimal.NewFromInt(-200)},
		},
		Status: EventStatusPending,
	}
	require.NoError(t, proc.Process(context.Background(), ev))
	require.Len(t, poster.inputs, 1)

	in := poster.inputs[0]
	require.Equal(t, journal.DocKindFiscalOpening, in.DocKind)
	require.Len(t, in.Legs, 2)

	byAccount := map[int64]journal.Leg{}
	for _, leg := range in.Legs {
		byAccount[leg.AccountID] = leg
	}
	require.True(t, byAccount[1].Debit.Equal(decimal.NewFromInt(500)))
	require.True(t, byAccount[10].Credit.Equal(decimal.NewFromInt(500)), "retained earnings absorbs prior balance plus net income")
}

func TestProcessPendingMarksFailures(t *testing.T) {
	repo := newFakePeriodRepo()
	resolver := fakeResolver{} // retained earnings unmapped
	poster := &capturePoster{}
	proc := NewEventProcessor(slog.Default(), repo, resolver, poster)

	ev := LedgerEvent{
		ID:        uuid.New(),
		CompanyID: 7,
		PeriodID:  1,
		Kind:      EventKindClosing,
		Snapshot: []BalanceSnapshot{
			{AccountID: 1, Type: accounts.AccountTypeAsset, Balance: decimal.NewFromInt(500)},
			{AccountID: 3, Type: accounts.AccountTypeRevenue, Balance: decimal.NewFromInt(-500)},
		},
		Status: EventStatusPending,
	}
	require.NoError(t, repo.InsertEvent(context.Background(), ev))

	processed, err := proc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, processed)
	require.Equal(t, EventStatusFailed, repo.statuses[ev.ID])
	require.Empty(t, poster.inputs)
}
