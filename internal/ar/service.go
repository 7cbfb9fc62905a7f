package ar

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/journal"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/mappings"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/outbox"
	internalShared "github.com/meridian-erp/meridian-ledger/internal/shared"
	"github.com/meridian-erp/meridian-ledger/jobs"
)

// settleChunkSize bounds invoices per settlement sub-transaction so a bulk
// run over hundreds of invoices does not hold row locks for the whole batch.
const settleChunkSize = 50

const (
	referencePayment         = "PAYMENT"
	referenceCustomerOpening = "CUSTOMER_OPENING"
)

// LedgerQueue is the outbound port for durable ledger postings.
type LedgerQueue interface {
	EnqueueLedgerPost(ctx context.Context, payload jobs.LedgerPostPayload) error
}

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service owns receivables: customers, their invoices, and settlements.
// Money mutations and the matching ledger postings are decoupled: the
// database transaction commits the mutation together with an outbox row,
// then the posting is enqueued. If the enqueue is lost the worker sweep
// replays the outbox row. The payment ID is the posting reference, so a
// redelivered task cannot double-post.
type Service struct {
	repo   Repository
	queue  LedgerQueue
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

func NewService(logger *slog.Logger, repo Repository, queue LedgerQueue, audit AuditPort) *Service {
	return &Service{repo: repo, queue: queue, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateCustomer registers the customer and, when an opening receivable is
// carried in, stages the opening balance posting against the opening
// balance equity account in the same transaction.
func (s *Service) CreateCustomer(ctx context.Context, in CreateCustomerInput) (Customer, error) {
	if err := in.Validate(); err != nil {
		return Customer{}, err
	}
	var customer Customer
	var post pendingPost
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		customer, err = tx.CreateCustomer(ctx, Customer{
			CompanyID:          in.CompanyID,
			Name:               in.Name,
			Email:              in.Email,
			Phone:              in.Phone,
			OutstandingBalance: in.OpeningBalance,
		})
		if err != nil {
			return err
		}
		if in.OpeningBalance.IsPositive() {
			post, err = s.stagePost(ctx, tx, jobs.LedgerPostPayload{
				CompanyID:        in.CompanyID,
				ReferenceID:      uuid.New(),
				ReferenceType:    referenceCustomerOpening,
				DocKind:          journal.DocKindOpeningBalance,
				Date:             s.now(),
				Description:      "Opening balance for customer " + customer.Name,
				Amount:           in.OpeningBalance,
				DebitRole:        mappings.MappingAccountsReceivable,
				CreditRole:       mappings.MappingOpeningBalanceEquity,
				CounterpartyType: counterpartyCustomer(),
				CounterpartyID:   &customer.ID,
				ActorID:          in.ActorID,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return Customer{}, err
	}
	s.dispatch(ctx, post)

	s.recordAudit(ctx, in.ActorID, "ar.customer.create", "customer", customer.ID, map[string]any{
		"opening_balance": in.OpeningBalance.String(),
	})
	return customer, nil
}

// RecordPayment applies one payment to one invoice. Invoice amounts, the
// customer outstanding balance, and the payment row commit in a single
// transaction; the ledger posting is enqueued after commit.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (Payment, SalesInvoice, error) {
	if !in.Amount.IsPositive() {
		return Payment{}, SalesInvoice{}, ErrNonPositiveAmount
	}
	if in.PaidAt.IsZero() {
		in.PaidAt = s.now()
	}

	var payment Payment
	var invoice SalesInvoice
	var post pendingPost
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, in.CompanyID, in.InvoiceID)
		if err != nil {
			return err
		}
		if !inv.AmountDue.IsPositive() {
			return ErrInvoicePaid
		}
		if in.Amount.GreaterThan(inv.AmountDue) {
			return ErrOverpayment
		}
		payment, err = s.applyToInvoice(ctx, tx, &inv, in.Amount, in.Method, in.PaidAt, in.ActorID)
		if err != nil {
			return err
		}
		post, err = s.stagePost(ctx, tx, paymentPayload(payment))
		if err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return Payment{}, SalesInvoice{}, err
	}

	s.dispatch(ctx, post)
	s.recordAudit(ctx, in.ActorID, "ar.payment.record", "payment", in.InvoiceID, map[string]any{
		"payment_id": payment.ID.String(),
		"amount":     payment.Amount.String(),
	})
	return payment, invoice, nil
}

// SettleDebt spreads a lump sum across the given invoices in order,
// allocating min(remaining, due) to each. Invoices are processed in chunks
// of separate sub-transactions; a failing chunk is skipped and reported
// rather than rolling back the whole run.
func (s *Service) SettleDebt(ctx context.Context, in SettleInput) (Settlement, error) {
	if !in.Amount.IsPositive() {
		return Settlement{}, ErrNonPositiveAmount
	}
	if _, err := s.repo.GetCustomer(ctx, in.CompanyID, in.CustomerID); err != nil {
		return Settlement{}, err
	}

	result := Settlement{Allocated: decimal.Zero, Remaining: in.Amount}
	paidAt := s.now()

	for start := 0; start < len(in.InvoiceIDs) && result.Remaining.IsPositive(); start += settleChunkSize {
		end := min(start+settleChunkSize, len(in.InvoiceIDs))
		chunk := in.InvoiceIDs[start:end]

		// Per-chunk state merges into the summary only after the chunk
		// commits; a rolled-back chunk must not move the totals.
		var payments []Payment
		var posts []pendingPost
		var skipped []int64
		remaining := result.Remaining
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			payments, posts, skipped = nil, nil, nil
			remaining = result.Remaining
			for _, invoiceID := range chunk {
				if !remaining.IsPositive() {
					return nil
				}
				inv, err := tx.GetInvoiceForUpdate(ctx, in.CompanyID, invoiceID)
				if err != nil {
					return err
				}
				if inv.CustomerID != in.CustomerID || !inv.AmountDue.IsPositive() {
					skipped = append(skipped, invoiceID)
					continue
				}
				alloc := decimal.Min(remaining, inv.AmountDue)
				payment, err := s.applyToInvoice(ctx, tx, &inv, alloc, in.Method, paidAt, in.ActorID)
				if err != nil {
					return err
				}
				post, err := s.stagePost(ctx, tx, paymentPayload(payment))
				if err != nil {
					return err
				}
				payments = append(payments, payment)
				posts = append(posts, post)
				remaining = remaining.Sub(alloc)
			}
			return nil
		})
		if err != nil {
			s.logger.Error("settle chunk failed",
				slog.Int64("customer_id", in.CustomerID),
				slog.Int("chunk_start", start),
				slog.Any("error", err))
			result.Skipped = append(result.Skipped, chunk...)
			continue
		}
		result.Allocated = result.Allocated.Add(result.Remaining.Sub(remaining))
		result.Remaining = remaining
		result.Skipped = append(result.Skipped, skipped...)
		s.dispatch(ctx, posts...)
		result.Payments = append(result.Payments, payments...)
	}

	result.PaymentsCreated = len(result.Payments)
	result.SettledInvoices = len(result.Payments)
	s.recordAudit(ctx, in.ActorID, "ar.settle", "customer", in.CustomerID, map[string]any{
		"allocated": result.Allocated.String(),
		"remaining": result.Remaining.String(),
		"invoices":  result.SettledInvoices,
	})
	return result, nil
}

func (s *Service) GetCustomer(ctx context.Context, companyID, customerID int64) (Customer, error) {
	return s.repo.GetCustomer(ctx, companyID, customerID)
}

func (s *Service) ListCustomers(ctx context.Context, companyID int64) ([]Customer, error) {
	return s.repo.ListCustomers(ctx, companyID)
}

func (s *Service) GetInvoice(ctx context.Context, companyID, invoiceID int64) (SalesInvoice, error) {
	return s.repo.GetInvoice(ctx, companyID, invoiceID)
}

func (s *Service) ListInvoicesByCustomer(ctx context.Context, companyID, customerID int64) ([]SalesInvoice, error) {
	return s.repo.ListInvoicesByCustomer(ctx, companyID, customerID)
}

func (s *Service) ListPaymentsByCustomer(ctx context.Context, companyID, customerID int64) ([]Payment, error) {
	return s.repo.ListPaymentsByCustomer(ctx, companyID, customerID)
}

// applyToInvoice mutates the locked invoice, decrements the customer
// balance, and inserts the payment row.
func (s *Service) applyToInvoice(ctx context.Context, tx TxRepository, inv *SalesInvoice, amount decimal.Decimal, method string, paidAt time.Time, actorID int64) (Payment, error) {
	inv.AmountPaid = inv.AmountPaid.Add(amount)
	inv.AmountDue = inv.TotalAmount.Sub(inv.AmountPaid)
	if inv.AmountDue.IsPositive() {
		inv.PaymentStatus = StatusPartial
	} else {
		inv.PaymentStatus = StatusPaid
	}
	if err := tx.UpdateInvoicePayment(ctx, *inv); err != nil {
		return Payment{}, err
	}
	if err := tx.AddToCustomerBalance(ctx, inv.CompanyID, inv.CustomerID, amount.Neg()); err != nil {
		return Payment{}, err
	}
	payment := Payment{
		ID:         uuid.New(),
		CompanyID:  inv.CompanyID,
		CustomerID: inv.CustomerID,
		InvoiceID:  inv.ID,
		Amount:     amount,
		Method:     method,
		PaidAt:     paidAt,
		CreatedBy:  actorID,
	}
	if err := tx.InsertPayment(ctx, &payment); err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// pendingPost pairs an outbox row with the payload it carries, so the
// post-commit dispatch can mark the row once the enqueue lands.
type pendingPost struct {
	outboxID uuid.UUID
	payload  jobs.LedgerPostPayload
}

func paymentPayload(p Payment) jobs.LedgerPostPayload {
	return jobs.LedgerPostPayload{
		CompanyID:        p.CompanyID,
		ReferenceID:      p.ID,
		ReferenceType:    referencePayment,
		DocKind:          journal.DocKindSalePayment,
		Date:             p.PaidAt,
		Description:      "Customer payment " + p.ID.String(),
		Amount:           p.Amount,
		DebitRole:        mappings.MappingCash,
		CreditRole:       mappings.MappingAccountsReceivable,
		CounterpartyType: counterpartyCustomer(),
		CounterpartyID:   &p.CustomerID,
		ActorID:          p.CreatedBy,
	}
}

// stagePost writes the posting intent into the outbox inside the caller's
// transaction.
func (s *Service) stagePost(ctx context.Context, tx TxRepository, payload jobs.LedgerPostPayload) (pendingPost, error) {
	entry, err := outbox.NewEntry(payload.CompanyID, payload)
	if err != nil {
		return pendingPost{}, err
	}
	if err := tx.InsertOutbox(ctx, entry); err != nil {
		return pendingPost{}, err
	}
	return pendingPost{outboxID: entry.ID, payload: payload}, nil
}

// dispatch enqueues committed posting intents and settles their outbox rows.
// A failed enqueue is only logged: the row stays pending and the worker
// sweep replays it.
func (s *Service) dispatch(ctx context.Context, posts ...pendingPost) {
	if s.queue == nil {
		return
	}
	for _, post := range posts {
		if post.outboxID == uuid.Nil {
			continue
		}
		if err := s.queue.EnqueueLedgerPost(context.WithoutCancel(ctx), post.payload); err != nil {
			s.logger.Warn("enqueue ledger post, leaving outbox row for sweep",
				slog.String("reference_id", post.payload.ReferenceID.String()),
				slog.String("reference_type", post.payload.ReferenceType),
				slog.Any("error", err))
			continue
		}
		if err := s.repo.MarkOutboxDispatched(ctx, post.outboxID); err != nil {
			// The sweep will re-enqueue once; posting idempotency makes
			// that harmless.
			s.logger.Warn("mark outbox dispatched", slog.Any("error", err))
		}
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
		At:       s.now(),
	})
}

func counterpartyCustomer() *journal.CounterpartyType {
	ct := journal.CounterpartyCustomer
	return &ct
}
