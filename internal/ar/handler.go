package ar

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-ledger/internal/platform/httpx"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

type createCustomerRequest struct {
	CompanyID      int64  `json:"company_id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone"`
	OpeningBalance string `json:"opening_balance"`
	ActorID        int64  `json:"actor_id" validate:"required"`
}

type recordPaymentRequest struct {
	CompanyID int64  `json:"company_id" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	Method    string `json:"method" validate:"required"`
	PaidAt    string `json:"paid_at"`
	ActorID   int64  `json:"actor_id" validate:"required"`
}

type settleRequest struct {
	CompanyID  int64   `json:"company_id" validate:"required"`
	Amount     string  `json:"amount" validate:"required"`
	InvoiceIDs []int64 `json:"invoice_ids" validate:"required,min=1"`
	Method     string  `json:"method" validate:"required"`
	ActorID    int64   `json:"actor_id" validate:"required"`
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	opening := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		opening, err = decimal.NewFromString(req.OpeningBalance)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "opening_balance must be a decimal string")
			return
		}
	}
	customer, err := h.service.CreateCustomer(r.Context(), CreateCustomerInput{
		CompanyID:      req.CompanyID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		OpeningBalance: opening,
		ActorID:        req.ActorID,
	})
	if err != nil {
		h.logger.Error("create customer", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	customers, err := h.service.ListCustomers(r.Context(), companyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	customer, err := h.service.GetCustomer(r.Context(), companyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	customerID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	invoices, err := h.service.ListInvoicesByCustomer(r.Context(), companyID, customerID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	customerID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	payments, err := h.service.ListPaymentsByCustomer(r.Context(), companyID, customerID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal string")
		return
	}
	var paidAt time.Time
	if req.PaidAt != "" {
		paidAt, err = time.Parse("2006-01-02", req.PaidAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "paid_at must be YYYY-MM-DD")
			return
		}
	}
	invoiceID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	payment, invoice, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		CompanyID: req.CompanyID,
		InvoiceID: invoiceID,
		Amount:    amount,
		Method:    req.Method,
		PaidAt:    paidAt,
		ActorID:   req.ActorID,
	})
	if err != nil {
		h.logger.Error("record payment", slog.Int64("invoice_id", invoiceID), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"payment": payment, "invoice": invoice})
}

func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a decimal string")
		return
	}
	customerID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	result, err := h.service.SettleDebt(r.Context(), SettleInput{
		CompanyID:  req.CompanyID,
		CustomerID: customerID,
		Amount:     amount,
		InvoiceIDs: req.InvoiceIDs,
		Method:     req.Method,
		ActorID:    req.ActorID,
	})
	if err != nil {
		h.logger.Error("settle debt", slog.Int64("customer_id", customerID), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCustomerNotFound), errors.Is(err, ErrInvoiceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvoicePaid), errors.Is(err, ErrOverpayment), errors.Is(err, ErrNonPositiveAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func companyIDParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("company_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("company_id query parameter required")
	}
	return id, nil
}
