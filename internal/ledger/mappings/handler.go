package mappings

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

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

type setDefaultRequest struct {
	CompanyID int64  `json:"company_id" validate:"required"`
	Type      string `json:"mapping_type" validate:"required"`
	AccountID int64  `json:"account_id" validate:"required"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	list, err := h.service.List(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list mappings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"mappings": list})
}

func (h *Handler) SetDefault(w http.ResponseWriter, r *http.Request) {
	var req setDefaultRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if !IsValidType(MappingType(req.Type)) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown mapping_type")
		return
	}
	mapping, err := h.service.SetDefault(r.Context(), req.CompanyID, MappingType(req.Type), req.AccountID)
	if err != nil {
		h.logger.Error("set default mapping", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapping)
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	mappingType := MappingType(r.URL.Query().Get("type"))
	if !IsValidType(mappingType) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown mapping type")
		return
	}
	accountID, err := h.service.Resolve(r.Context(), companyID, mappingType)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"mapping_type": mappingType, "account_id": accountID})
}

func companyIDParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("company_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("company_id query parameter required")
	}
	return id, nil
}
