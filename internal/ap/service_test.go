package ap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/journal"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/mappings"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/outbox"
	internalShared "github.com/meridian-erp/meridian-ledger/internal/shared"
	"github.com/meridian-erp/meridian-ledger/jobs"
)

type fakeRepo struct {
	suppliers  map[int64]Supplier
	payments   []SupplierPayment
	outbox     []outbox.Entry
	dispatched []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{suppliers: make(map[int64]Supplier)}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) GetSupplier(_ context.Context, companyID, supplierID int64) (Supplier, error) {
	s, ok := f.suppliers[supplierID]
	if !ok || s.CompanyID != companyID {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, nil
}

func (f *fakeRepo) ListSuppliers(_ context.Context, companyID int64) ([]Supplier, error) {
	var out []Supplier
	for _, s := range f.suppliers {
		if s.CompanyID == companyID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateSupplier(_ context.Context, s Supplier) (Supplier, error) {
	s.ID = int64(len(f.suppliers) + 1)
	s.IsActive = true
	f.suppliers[s.ID] = s
	return s, nil
}

func (f *fakeRepo) ListPayments(_ context.Context, companyID, supplierID int64) ([]SupplierPayment, error) {
	var out []SupplierPayment
	for _, p := range f.payments {
		if p.CompanyID == companyID && p.SupplierID == supplierID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetSupplierForUpdate(ctx context.Context, companyID, supplierID int64) (Supplier, error) {
	return f.GetSupplier(ctx, companyID, supplierID)
}

func (f *fakeRepo) AddToSupplierBalance(_ context.Context, companyID, supplierID int64, delta decimal.Decimal) error {
	s, ok := f.suppliers[supplierID]
	if !ok || s.CompanyID != companyID {
		return ErrSupplierNotFound
	}
	s.OutstandingBalance = s.OutstandingBalance.Add(delta)
	f.suppliers[supplierID] = s
	return nil
}

func (f *fakeRepo) InsertPayment(_ context.Context, p *SupplierPayment) error {
	p.CreatedAt = time.Now()
	f.payments = append(f.payments, *p)
	return nil
}

func (f *fakeRepo) InsertOutbox(_ context.Context, e outbox.Entry) error {
	f.outbox = append(f.outbox, e)
	return nil
}

func (f *fakeRepo) MarkOutboxDispatched(_ context.Context, id uuid.UUID) error {
	f.dispatched = append(f.dispatched, id)
	return nil
}

type fakeQueue struct {
	posts []jobs.LedgerPostPayload
	err   error
}

func (f *fakeQueue) EnqueueLedgerPost(_ context.Context, payload jobs.LedgerPostPayload) error {
	if f.err != nil {
		return f.err
	}
	f.posts = append(f.posts, payload)
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, internalShared.AuditLog) error { return nil }

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestRecordSupplierPayment(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.suppliers[3] = Supplier{ID: 3, CompanyID: 1, Name: "Parts Co", OutstandingBalance: dec(900), IsActive: true}

	svc := NewService(slog.Default(), repo, queue, noopAudit{})
	payment, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, SupplierID: 3, Amount: dec(400), Method: "bank", ActorID: 9,
	})
	require.NoError(t, err)
	require.True(t, payment.Amount.Equal(dec(400)))

	supplier, err := repo.GetSupplier(context.Background(), 1, 3)
	require.NoError(t, err)
	require.True(t, supplier.OutstandingBalance.Equal(dec(500)))

	require.Len(t, queue.posts, 1)
	post := queue.posts[0]
	require.Equal(t, journal.DocKindSupplierPayment, post.DocKind)
	require.Equal(t, mappings.MappingAccountsPayable, post.DebitRole)
	require.Equal(t, mappings.MappingCash, post.CreditRole)
	require.Equal(t, payment.ID, post.ReferenceID)
	require.NotNil(t, post.CounterpartyType)
	require.Equal(t, journal.CounterpartySupplier, *post.CounterpartyType)
}

func TestRecordSupplierPaymentRejectsOverpayment(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.suppliers[3] = Supplier{ID: 3, CompanyID: 1, Name: "Parts Co", OutstandingBalance: dec(100), IsActive: true}

	svc := NewService(slog.Default(), repo, queue, noopAudit{})
	_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, SupplierID: 3, Amount: dec(500), Method: "bank", ActorID: 9,
	})
	require.ErrorIs(t, err, ErrOverpayment)
	require.Empty(t, queue.posts)
}

func TestRecordSupplierPaymentUnknownSupplier(t *testing.T) {
	svc := NewService(slog.Default(), newFakeRepo(), &fakeQueue{}, noopAudit{})
	_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, SupplierID: 42, Amount: dec(10), Method: "bank", ActorID: 9,
	})
	require.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestCreateSupplierWithOpeningBalance(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	svc := NewService(slog.Default(), repo, queue, noopAudit{})

	supplier, err := svc.CreateSupplier(context.Background(), CreateSupplierInput{
		CompanyID: 1, Name: "Parts Co", OpeningBalance: dec(750), ActorID: 9,
	})
	require.NoError(t, err)
	require.True(t, supplier.OutstandingBalance.Equal(dec(750)))

	require.Len(t, queue.posts, 1)
	post := queue.posts[0]
	require.Equal(t, journal.DocKindOpeningBalance, post.DocKind)
	require.Equal(t, mappings.MappingOpeningBalanceEquity, post.DebitRole)
	require.Equal(t, mappings.MappingAccountsPayable, post.CreditRole)
}

func TestCreateSupplierZeroOpeningSkipsPosting(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	svc := NewService(slog.Default(), repo, queue, noopAudit{})

	_, err := svc.CreateSupplier(context.Background(), CreateSupplierInput{
		CompanyID: 1, Name: "Parts Co", ActorID: 9,
	})
	require.NoError(t, err)
	require.Empty(t, queue.posts)
	require.Empty(t, repo.outbox)
}

func TestRecordSupplierPaymentStagesOutbox(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.suppliers[3] = Supplier{ID: 3, CompanyID: 1, Name: "Parts Co", OutstandingBalance: dec(900), IsActive: true}

	svc := NewService(slog.Default(), repo, queue, noopAudit{})
	payment, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, SupplierID: 3, Amount: dec(400), Method: "bank", ActorID: 9,
	})
	require.NoError(t, err)

	require.Len(t, repo.outbox, 1)
	require.Equal(t, []uuid.UUID{repo.outbox[0].ID}, repo.dispatched)

	var payload jobs.LedgerPostPayload
	require.NoError(t, json.Unmarshal(repo.outbox[0].Payload, &payload))
	require.Equal(t, payment.ID, payload.ReferenceID)
	require.Equal(t, journal.DocKindSupplierPayment, payload.DocKind)
}

func TestRecordSupplierPaymentLostEnqueueLeavesOutboxPending(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{err: errors.New("redis down")}
	repo.suppliers[3] = Supplier{ID: 3, CompanyID: 1, Name: "Parts Co", OutstandingBalance: dec(900), IsActive: true}

	svc := NewService(slog.Default(), repo, queue, noopAudit{})
	_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, SupplierID: 3, Amount: dec(400), Method: "bank", ActorID: 9,
	})
	require.NoError(t, err, "the payment itself must still commit")
	require.Len(t, repo.outbox, 1, "the intent survives for the sweep")
	require.Empty(t, repo.dispatched)
}
