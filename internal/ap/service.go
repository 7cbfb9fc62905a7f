package ap

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-ledger/internal/ledger/journal"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/mappings"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/outbox"
	internalShared "github.com/meridian-erp/meridian-ledger/internal/shared"
	"github.com/meridian-erp/meridian-ledger/jobs"
)

const (
	referenceSupplierPayment = "SUPPLIER_PAYMENT"
	referenceSupplierOpening = "SUPPLIER_OPENING"
)

// LedgerQueue is the outbound port for durable ledger postings.
type LedgerQueue interface {
	EnqueueLedgerPost(ctx context.Context, payload jobs.LedgerPostPayload) error
}

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service owns payables. It mirrors the receivables flow with the sides
// swapped: paying a supplier debits accounts payable and credits cash.
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

// CreateSupplier registers the supplier and, when an opening payable is
// carried in, stages the opening balance posting in the same transaction.
func (s *Service) CreateSupplier(ctx context.Context, in CreateSupplierInput) (Supplier, error) {
	if err := in.Validate(); err != nil {
		return Supplier{}, err
	}
	var supplier Supplier
	var post pendingPost
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		supplier, err = tx.CreateSupplier(ctx, Supplier{
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
				ReferenceType:    referenceSupplierOpening,
				DocKind:          journal.DocKindOpeningBalance,
				Date:             s.now(),
				Description:      "Opening balance for supplier " + supplier.Name,
				Amount:           in.OpeningBalance,
				DebitRole:        mappings.MappingOpeningBalanceEquity,
				CreditRole:       mappings.MappingAccountsPayable,
				CounterpartyType: counterpartySupplier(),
				CounterpartyID:   &supplier.ID,
				ActorID:          in.ActorID,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return Supplier{}, err
	}
	s.dispatch(ctx, post)

	s.recordAudit(ctx, in.ActorID, "ap.supplier.create", "supplier", supplier.ID, map[string]any{
		"opening_balance": in.OpeningBalance.String(),
	})
	return supplier, nil
}

// RecordPayment pays down the supplier balance and queues the matching
// ledger posting. Paying more than is owed is rejected.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (SupplierPayment, error) {
	if !in.Amount.IsPositive() {
		return SupplierPayment{}, ErrNonPositiveAmount
	}
	if in.PaidAt.IsZero() {
		in.PaidAt = s.now()
	}

	var payment SupplierPayment
	var post pendingPost
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		supplier, err := tx.GetSupplierForUpdate(ctx, in.CompanyID, in.SupplierID)
		if err != nil {
			return err
		}
		if in.Amount.GreaterThan(supplier.OutstandingBalance) {
			return ErrOverpayment
		}
		if err := tx.AddToSupplierBalance(ctx, in.CompanyID, in.SupplierID, in.Amount.Neg()); err != nil {
			return err
		}
		payment = SupplierPayment{
			ID:         uuid.New(),
			CompanyID:  in.CompanyID,
			SupplierID: in.SupplierID,
			Amount:     in.Amount,
			Method:     in.Method,
			PaidAt:     in.PaidAt,
			CreatedBy:  in.ActorID,
		}
		if err := tx.InsertPayment(ctx, &payment); err != nil {
			return err
		}
		post, err = s.stagePost(ctx, tx, paymentPayload(payment))
		return err
	})
	if err != nil {
		return SupplierPayment{}, err
	}

	s.dispatch(ctx, post)
	s.recordAudit(ctx, in.ActorID, "ap.payment.record", "supplier_payment", in.SupplierID, map[string]any{
		"payment_id": payment.ID.String(),
		"amount":     payment.Amount.String(),
	})
	return payment, nil
}

func (s *Service) GetSupplier(ctx context.Context, companyID, supplierID int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, companyID, supplierID)
}

func (s *Service) ListSuppliers(ctx context.Context, companyID int64) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx, companyID)
}

func (s *Service) ListPayments(ctx context.Context, companyID, supplierID int64) ([]SupplierPayment, error) {
	return s.repo.ListPayments(ctx, companyID, supplierID)
}

// pendingPost pairs an outbox row with the payload it carries, so the
// post-commit dispatch can mark the row once the enqueue lands.
type pendingPost struct {
	outboxID uuid.UUID
	payload  jobs.LedgerPostPayload
}

func paymentPayload(p SupplierPayment) jobs.LedgerPostPayload {
	return jobs.LedgerPostPayload{
		CompanyID:        p.CompanyID,
		ReferenceID:      p.ID,
		ReferenceType:    referenceSupplierPayment,
		DocKind:          journal.DocKindSupplierPayment,
		Date:             p.PaidAt,
		Description:      "Supplier payment " + p.ID.String(),
		Amount:           p.Amount,
		DebitRole:        mappings.MappingAccountsPayable,
		CreditRole:       mappings.MappingCash,
		CounterpartyType: counterpartySupplier(),
		CounterpartyID:   &p.SupplierID,
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

func counterpartySupplier() *journal.CounterpartyType {
	ct := journal.CounterpartySupplier
	return &ct
}
