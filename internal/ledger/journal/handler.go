package journal

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
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

type postLegRequest struct {
	AccountID int64  `json:"account_id" validate:"required"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
}

type postRequest struct {
	CompanyID     int64            `json:"company_id" validate:"required"`
	Date          time.Time        `json:"date"`
	Description   string           `json:"description"`
	ReferenceID   uuid.UUID        `json:"reference_id" validate:"required"`
	ReferenceType string           `json:"reference_type" validate:"required"`
	DocKind       string           `json:"doc_kind"`
	CreatedBy     int64            `json:"created_by"`
	Legs          []postLegRequest `json:"legs" validate:"required,min=2"`
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	kind := DocumentKind(req.DocKind)
	if kind == "" {
		kind = DocKindManual
	}
	if !IsValidDocumentKind(kind) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown doc_kind")
		return
	}
	if kind.SystemOnly() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "doc_kind is reserved for system generated entries")
		return
	}
	in := PostingInput{
		CompanyID:     req.CompanyID,
		Date:          req.Date,
		Description:   req.Description,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		DocKind:       kind,
		CreatedBy:     req.CreatedBy,
	}
	for _, leg := range req.Legs {
		debit, err := parseAmount(leg.Debit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid debit amount")
			return
		}
		credit, err := parseAmount(leg.Credit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid credit amount")
			return
		}
		in.Legs = append(in.Legs, Leg{AccountID: leg.AccountID, Debit: debit, Credit: credit})
	}
	posting, err := h.service.Post(r.Context(), in)
	if err != nil {
		h.logger.Error("post journal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusCreated
	if posting.Duplicate {
		status = http.StatusOK
	}
	httpx.JSON(w, status, posting)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, _ := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id query parameter required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	entries, err := h.service.List(r.Context(), companyID, limit, offset)
	if err != nil {
		h.logger.Error("list journal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) ByReference(w http.ResponseWriter, r *http.Request) {
	companyID, _ := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	referenceID, err := uuid.Parse(r.URL.Query().Get("reference_id"))
	referenceType := r.URL.Query().Get("reference_type")
	if companyID <= 0 || err != nil || referenceType == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id, reference_id and reference_type required")
		return
	}
	entries, err := h.service.ListByReference(r.Context(), companyID, referenceID, referenceType)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
