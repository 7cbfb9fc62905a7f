package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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

type createAccountRequest struct {
	CompanyID int64  `json:"company_id" validate:"required"`
	Code      string `json:"code" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Type      string `json:"type" validate:"required"`
	Category  string `json:"category"`
	ParentID  *int64 `json:"parent_id"`
	IsSystem  bool   `json:"is_system"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	list, err := h.service.List(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	account, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.Create(r.Context(), Account{
		CompanyID: req.CompanyID,
		Code:      req.Code,
		Name:      req.Name,
		Type:      AccountType(req.Type),
		Category:  AccountCategory(req.Category),
		ParentID:  req.ParentID,
		IsSystem:  req.IsSystem,
	})
	if err != nil {
		h.logger.Error("create account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Remove(r.Context(), companyID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func companyIDParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("company_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("company_id query parameter required")
	}
	return id, nil
}
