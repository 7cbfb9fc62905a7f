package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-ledger/internal/app"
	jobmetrics "github.com/meridian-erp/meridian-ledger/internal/jobs"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/journal"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/mappings"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/outbox"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/periods"
	"github.com/meridian-erp/meridian-ledger/internal/observability"
	"github.com/meridian-erp/meridian-ledger/internal/shared"
	"github.com/meridian-erp/meridian-ledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditLogger := shared.NewAuditLogger(pool)

	journalRepo := journal.NewRepository(pool)
	journalService := journal.NewService(journalRepo, auditLogger)

	mappingsService := mappings.NewService(mappings.NewRepository(pool))

	periodsRepo := periods.NewRepository(pool)
	eventProcessor := periods.NewEventProcessor(logger, periodsRepo, mappingsService, journalService)

	outboxRepo := outbox.NewRepository(pool)

	metrics := observability.NewMetrics()
	handlers := jobs.NewHandlers(logger, journalService, mappingsService, eventProcessor,
		jobmetrics.NewMetrics(metrics.Registerer()), metrics, outboxRepo)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	defer metricsSrv.Close()

	cron, err := jobs.DefaultCron()
	if err != nil {
		logger.Error("build cron schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
