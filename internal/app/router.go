package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-erp/meridian-ledger/internal/ap"
	"github.com/meridian-erp/meridian-ledger/internal/ar"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/accounts"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/journal"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/mappings"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/periods"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/statement"
	"github.com/meridian-erp/meridian-ledger/internal/observability"
	"github.com/meridian-erp/meridian-ledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AccountsHandler  *accounts.Handler
	MappingsHandler  *mappings.Handler
	JournalHandler   *journal.Handler
	StatementHandler *statement.Handler
	PeriodsHandler   *periods.Handler
	ARHandler        *ar.Handler
	APHandler        *ap.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.MappingsHandler != nil {
			r.Route("/mappings", params.MappingsHandler.MountRoutes)
		}
		if params.JournalHandler != nil {
			r.Route("/journal", params.JournalHandler.MountRoutes)
		}
		if params.StatementHandler != nil {
			r.Route("/statements", params.StatementHandler.MountRoutes)
		}
		if params.PeriodsHandler != nil {
			r.Route("/periods", params.PeriodsHandler.MountRoutes)
		}
		if params.ARHandler != nil {
			r.Route("/ar", params.ARHandler.MountRoutes)
		}
		if params.APHandler != nil {
			r.Route("/ap", params.APHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
