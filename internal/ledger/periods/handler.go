package periods

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

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

type createPeriodRequest struct {
	CompanyID int64  `json:"company_id" validate:"required"`
	Name      string `json:"period_name" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type closePeriodRequest struct {
	CompanyID int64 `json:"company_id" validate:"required"`
	ActorID   int64 `json:"actor_id" validate:"required"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	list, err := h.service.List(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	period, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be YYYY-MM-DD")
		return
	}
	period, err := h.service.Create(r.Context(), CreatePeriodInput{
		CompanyID: req.CompanyID,
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		if errors.Is(err, ErrPeriodOverlap) {
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
			return
		}
		h.logger.Error("create period", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	var req closePeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	period, err := h.service.Close(r.Context(), req.CompanyID, id, req.ActorID)
	if err != nil {
		h.logger.Error("close period", slog.Int64("period_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func companyIDParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("company_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("company_id query parameter required")
	}
	return id, nil
}
