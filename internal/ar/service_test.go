package ar

import (
	"context"
	"encoding/json"
	"fmt"
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
	customers  map[int64]Customer
	invoices   map[int64]SalesInvoice
	payments   []Payment
	outbox     []outbox.Entry
	dispatched []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		customers: make(map[int64]Customer),
		invoices:  make(map[int64]SalesInvoice),
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) GetCustomer(_ context.Context, companyID, customerID int64) (Customer, error) {
	c, ok := f.customers[customerID]
	if !ok || c.CompanyID != companyID {
		return Customer{}, ErrCustomerNotFound
	}
	return c, nil
}

func (f *fakeRepo) ListCustomers(_ context.Context, companyID int64) ([]Customer, error) {
	var out []Customer
	for _, c := range f.customers {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateCustomer(_ context.Context, c Customer) (Customer, error) {
	c.ID = int64(len(f.customers) + 1)
	c.IsActive = true
	f.customers[c.ID] = c
	return c, nil
}

func (f *fakeRepo) GetInvoice(_ context.Context, companyID, invoiceID int64) (SalesInvoice, error) {
	inv, ok := f.invoices[invoiceID]
	if !ok || inv.CompanyID != companyID {
		return SalesInvoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (f *fakeRepo) ListInvoicesByCustomer(_ context.Context, companyID, customerID int64) ([]SalesInvoice, error) {
	var out []SalesInvoice
	for _, inv := range f.invoices {
		if inv.CompanyID == companyID && inv.CustomerID == customerID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListPaymentsByCustomer(_ context.Context, companyID, customerID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range f.payments {
		if p.CompanyID == companyID && p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetInvoiceForUpdate(ctx context.Context, companyID, invoiceID int64) (SalesInvoice, error) {
	return f.GetInvoice(ctx, companyID, invoiceID)
}

func (f *fakeRepo) UpdateInvoicePayment(_ context.Context, inv SalesInvoice) error {
	f.invoices[inv.ID] = inv
	return nil
}

func (f *fakeRepo) AddToCustomerBalance(_ context.Context, companyID, customerID int64, delta decimal.Decimal) error {
	c, ok := f.customers[customerID]
	if !ok || c.CompanyID != companyID {
		return ErrCustomerNotFound
	}
	c.OutstandingBalance = c.OutstandingBalance.Add(delta)
	f.customers[customerID] = c
	return nil
}

func (f *fakeRepo) InsertPayment(_ context.Context, p *Payment) error {
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

// pendingOutbox returns the entries not yet marked dispatched.
func (f *fakeRepo) pendingOutbox() []outbox.Entry {
	done := make(map[uuid.UUID]bool, len(f.dispatched))
	for _, id := range f.dispatched {
		done[id] = true
	}
	var out []outbox.Entry
	for _, e := range f.outbox {
		if !done[e.ID] {
			out = append(out, e)
		}
	}
	return out
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

func seedInvoice(repo *fakeRepo, id, customerID int64, total, paid int64) {
	repo.invoices[id] = SalesInvoice{
		ID:            id,
		CompanyID:     1,
		CustomerID:    customerID,
		InvoiceNumber: fmt.Sprintf("INV-%03d", id),
		InvoiceDate:   time.Date(2025, 3, int(id), 0, 0, 0, 0, time.UTC),
		TotalAmount:   dec(total),
		AmountPaid:    dec(paid),
		AmountDue:     dec(total - paid),
		PaymentStatus: StatusPending,
	}
}

func newTestService(repo *fakeRepo, queue *fakeQueue) *Service {
	svc := NewService(slog.Default(), repo, queue, noopAudit{})
	svc.WithNow(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return svc
}

func TestRecordPaymentPartial(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", OutstandingBalance: dec(1000), IsActive: true}
	seedInvoice(repo, 1, 5, 1000, 0)

	svc := newTestService(repo, queue)
	payment, invoice, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, InvoiceID: 1, Amount: dec(400), Method: "cash", ActorID: 9,
	})
	require.NoError(t, err)
	require.True(t, payment.Amount.Equal(dec(400)))
	require.True(t, invoice.AmountPaid.Equal(dec(400)))
	require.True(t, invoice.AmountDue.Equal(dec(600)))
	require.Equal(t, StatusPartial, invoice.PaymentStatus)

	customer, err := repo.GetCustomer(context.Background(), 1, 5)
	require.NoError(t, err)
	require.True(t, customer.OutstandingBalance.Equal(dec(600)))

	require.Len(t, queue.posts, 1)
	post := queue.posts[0]
	require.Equal(t, payment.ID, post.ReferenceID)
	require.Equal(t, journal.DocKindSalePayment, post.DocKind)
	require.Equal(t, mappings.MappingCash, post.DebitRole)
	require.Equal(t, mappings.MappingAccountsReceivable, post.CreditRole)
	require.NotNil(t, post.CounterpartyID)
	require.Equal(t, int64(5), *post.CounterpartyID)
}

func TestRecordPaymentFull(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", OutstandingBalance: dec(600), IsActive: true}
	seedInvoice(repo, 1, 5, 1000, 400)

	svc := newTestService(repo, queue)
	_, invoice, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, InvoiceID: 1, Amount: dec(600), Method: "bank", ActorID: 9,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, invoice.PaymentStatus)
	require.True(t, invoice.AmountDue.IsZero())
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", IsActive: true}
	seedInvoice(repo, 1, 5, 1000, 700)

	svc := newTestService(repo, queue)
	_, _, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, InvoiceID: 1, Amount: dec(500), Method: "cash", ActorID: 9,
	})
	require.ErrorIs(t, err, ErrOverpayment)
	require.Empty(t, queue.posts, "failed payment must not reach the ledger queue")
}

func TestRecordPaymentRejectsPaidInvoice(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", IsActive: true}
	seedInvoice(repo, 1, 5, 1000, 1000)

	svc := newTestService(repo, queue)
	_, _, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, InvoiceID: 1, Amount: dec(1), Method: "cash", ActorID: 9,
	})
	require.ErrorIs(t, err, ErrInvoicePaid)
}

func TestRecordPaymentRejectsNonPositive(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeQueue{})
	_, _, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, InvoiceID: 1, Amount: decimal.Zero, Method: "cash", ActorID: 9,
	})
	require.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestSettleDebtFIFO(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", OutstandingBalance: dec(1100), IsActive: true}
	seedInvoice(repo, 1, 5, 600, 0)
	seedInvoice(repo, 2, 5, 500, 0)

	svc := newTestService(repo, queue)
	result, err := svc.SettleDebt(context.Background(), SettleInput{
		CompanyID: 1, CustomerID: 5, Amount: dec(1000), InvoiceIDs: []int64{1, 2}, Method: "bank", ActorID: 9,
	})
	require.NoError(t, err)
	require.True(t, result.Allocated.Equal(dec(1000)))
	require.True(t, result.Remaining.IsZero())
	require.Equal(t, 2, result.PaymentsCreated)

	first := repo.invoices[1]
	require.Equal(t, StatusPaid, first.PaymentStatus)
	require.True(t, first.AmountDue.IsZero())

	second := repo.invoices[2]
	require.Equal(t, StatusPartial, second.PaymentStatus)
	require.True(t, second.AmountDue.Equal(dec(100)))

	customer, err := repo.GetCustomer(context.Background(), 1, 5)
	require.NoError(t, err)
	require.True(t, customer.OutstandingBalance.Equal(dec(100)))

	require.Len(t, queue.posts, 2)
}

func TestSettleDebtLeavesRemainder(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", OutstandingBalance: dec(300), IsActive: true}
	seedInvoice(repo, 1, 5, 300, 0)

	svc := newTestService(repo, queue)
	result, err := svc.SettleDebt(context.Background(), SettleInput{
		CompanyID: 1, CustomerID: 5, Amount: dec(1000), InvoiceIDs: []int64{1}, Method: "bank", ActorID: 9,
	})
	require.NoError(t, err)
	require.True(t, result.Allocated.Equal(dec(300)))
	require.True(t, result.Remaining.Equal(dec(700)))
}

func TestSettleDebtSkipsForeignAndPaidInvoices(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", OutstandingBalance: dec(200), IsActive: true}
	seedInvoice(repo, 1, 6, 400, 0)   // other customer
	seedInvoice(repo, 2, 5, 100, 100) // already paid
	seedInvoice(repo, 3, 5, 200, 0)

	svc := newTestService(repo, queue)
	result, err := svc.SettleDebt(context.Background(), SettleInput{
		CompanyID: 1, CustomerID: 5, Amount: dec(200), InvoiceIDs: []int64{1, 2, 3}, Method: "cash", ActorID: 9,
	})
	require.NoError(t, err)
	require.True(t, result.Allocated.Equal(dec(200)))
	require.ElementsMatch(t, []int64{1, 2}, result.Skipped)
	require.Equal(t, 1, result.PaymentsCreated)

	foreign := repo.invoices[1]
	require.True(t, foreign.AmountDue.Equal(dec(400)), "foreign invoice must be untouched")
}

func TestSettlementConservation(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", OutstandingBalance: dec(1500), IsActive: true}
	ids := []int64{1, 2, 3, 4, 5}
	for _, id := range ids {
		seedInvoice(repo, id, 5, 300, 0)
	}

	svc := newTestService(repo, queue)
	result, err := svc.SettleDebt(context.Background(), SettleInput{
		CompanyID: 1, CustomerID: 5, Amount: dec(777), InvoiceIDs: ids, Method: "bank", ActorID: 9,
	})
	require.NoError(t, err)

	// Whatever the allocation, money in equals money applied plus remainder.
	require.True(t, result.Allocated.Add(result.Remaining).Equal(dec(777)))

	totalPaid := decimal.Zero
	for _, p := range result.Payments {
		totalPaid = totalPaid.Add(p.Amount)
	}
	require.True(t, totalPaid.Equal(result.Allocated))

	customer, err := repo.GetCustomer(context.Background(), 1, 5)
	require.NoError(t, err)
	require.True(t, customer.OutstandingBalance.Equal(dec(1500).Sub(result.Allocated)))
}

func TestCreateCustomerWithOpeningBalance(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	svc := newTestService(repo, queue)

	customer, err := svc.CreateCustomer(context.Background(), CreateCustomerInput{
		CompanyID: 1, Name: "Acme", OpeningBalance: dec(250), ActorID: 9,
	})
	require.NoError(t, err)
	require.True(t, customer.OutstandingBalance.Equal(dec(250)))

	require.Len(t, queue.posts, 1)
	post := queue.posts[0]
	require.Equal(t, journal.DocKindOpeningBalance, post.DocKind)
	require.Equal(t, mappings.MappingAccountsReceivable, post.DebitRole)
	require.Equal(t, mappings.MappingOpeningBalanceEquity, post.CreditRole)
}

func TestRecordPaymentStagesOutboxWithPayment(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", OutstandingBalance: dec(1000), IsActive: true}
	seedInvoice(repo, 1, 5, 1000, 0)

	svc := newTestService(repo, queue)
	payment, _, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, InvoiceID: 1, Amount: dec(400), Method: "cash", ActorID: 9,
	})
	require.NoError(t, err)

	// The intent committed with the payment and was settled after the
	// enqueue landed.
	require.Len(t, repo.outbox, 1)
	require.Empty(t, repo.pendingOutbox())

	var payload jobs.LedgerPostPayload
	require.NoError(t, json.Unmarshal(repo.outbox[0].Payload, &payload))
	require.Equal(t, payment.ID, payload.ReferenceID)
	require.Equal(t, journal.DocKindSalePayment, payload.DocKind)
}

func TestRecordPaymentLostEnqueueLeavesOutboxPending(t *testing.T) {
	// A dead queue must not lose the posting: the outbox row stays pending
	// so the worker sweep can replay it.
	repo := newFakeRepo()
	queue := &fakeQueue{err: fmt.Errorf("redis down")}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", OutstandingBalance: dec(1000), IsActive: true}
	seedInvoice(repo, 1, 5, 1000, 0)

	svc := newTestService(repo, queue)
	payment, _, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		CompanyID: 1, InvoiceID: 1, Amount: dec(400), Method: "cash", ActorID: 9,
	})
	require.NoError(t, err, "the payment itself must still commit")
	require.Empty(t, queue.posts)

	pending := repo.pendingOutbox()
	require.Len(t, pending, 1)
	var payload jobs.LedgerPostPayload
	require.NoError(t, json.Unmarshal(pending[0].Payload, &payload))
	require.Equal(t, payment.ID, payload.ReferenceID)
}

func TestSettleDebtStagesOutboxPerPayment(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	repo.customers[5] = Customer{ID: 5, CompanyID: 1, Name: "Acme", OutstandingBalance: dec(1100), IsActive: true}
	seedInvoice(repo, 1, 5, 600, 0)
	seedInvoice(repo, 2, 5, 500, 0)

	svc := newTestService(repo, queue)
	_, err := svc.SettleDebt(context.Background(), SettleInput{
		CompanyID: 1, CustomerID: 5, Amount: dec(1000), InvoiceIDs: []int64{1, 2}, Method: "bank", ActorID: 9,
	})
	require.NoError(t, err)
	require.Len(t, repo.outbox, 2)
	require.Empty(t, repo.pendingOutbox())
}

func TestCreateCustomerZeroOpeningSkipsPosting(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	svc := newTestService(repo, queue)

	_, err := svc.CreateCustomer(context.Background(), CreateCustomerInput{
		CompanyID: 1, Name: "Acme", ActorID: 9,
	})
	require.NoError(t, err)
	require.Empty(t, queue.posts)
	require.Empty(t, repo.outbox)
}
