package ap

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

type createSupplierRequest struct {
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

func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req createSupplierRequest
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
	supplier, err := h.service.CreateSupplier(r.Context(), CreateSupplierInput{
		CompanyID:      req.CompanyID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		OpeningBalance: opening,
		ActorID:        req.ActorID,
	})
	if err != nil {
		h.logger.Error("create supplier", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	suppliers, err := h.service.ListSuppliers(r.Context(), companyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
}

func (h *Handler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	supplier, err := h.service.GetSupplier(r.Context(), companyID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	payments, err := h.service.ListPayments(r.Context(), companyID, id)
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
	supplierID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	payment, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		CompanyID:  req.CompanyID,
		SupplierID: supplierID,
		Amount:     amount,
		Method:     req.Method,
		PaidAt:     paidAt,
		ActorID:    req.ActorID,
	})
	if err != nil {
		h.logger.Error("record supplier payment", slog.Int64("supplier_id", supplierID), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSupplierNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrOverpayment), errors.Is(err, ErrNonPositiveAmount):
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
