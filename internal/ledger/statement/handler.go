package statement

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/meridian-erp/meridian-ledger/internal/platform/httpx"
)

// PDFRenderer turns a built statement into a printable document. Optional;
// export responds 503 when no renderer is configured.
type PDFRenderer interface {
	RenderStatement(ctx context.Context, st Statement, q Query) ([]byte, error)
}

type Handler struct {
	service *Service
	pdf     PDFRenderer
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service, pdf PDFRenderer) *Handler {
	return &Handler{service: service, pdf: pdf, logger: logger}
}

func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	st, err := h.service.Build(r.Context(), q)
	if err != nil {
		h.logger.Error("build statement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	companyID, _ := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id query parameter required")
		return
	}
	from, _ := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	to, _ := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if to.IsZero() {
		to = time.Now()
	}
	tb, err := h.service.TrialBalance(r.Context(), companyID, from, to)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Export Unavailable", "PDF rendering is not configured")
		return
	}
	q, err := queryFromRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	st, err := h.service.Build(r.Context(), q)
	if err != nil {
		h.logger.Error("build statement for export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	pdf, err := h.pdf.RenderStatement(r.Context(), st, q)
	if err != nil {
		h.logger.Error("render statement pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Export Failed", "statement could not be rendered")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%d-%d.pdf"`, q.CompanyID, q.SubjectID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func queryFromRequest(r *http.Request) (Query, error) {
	var q Query
	q.CompanyID, _ = strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	q.SubjectID, _ = strconv.ParseInt(r.URL.Query().Get("subject_id"), 10, 64)
	q.Kind = SubjectKind(r.URL.Query().Get("kind"))
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err := time.Parse("2006-01-02", raw); err == nil {
			q.From = from
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err := time.Parse("2006-01-02", raw); err == nil {
			q.To = to
		}
	}
	return q, nil
}
