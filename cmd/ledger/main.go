package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-ledger/internal/ap"
	"github.com/meridian-erp/meridian-ledger/internal/app"
	"github.com/meridian-erp/meridian-ledger/internal/ar"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/accounts"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/journal"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/mappings"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/periods"
	"github.com/meridian-erp/meridian-ledger/internal/ledger/statement"
	"github.com/meridian-erp/meridian-ledger/internal/observability"
	"github.com/meridian-erp/meridian-ledger/internal/shared"
	"github.com/meridian-erp/meridian-ledger/jobs"
	"github.com/meridian-erp/meridian-ledger/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	mappingsRepo := mappings.NewRepository(dbpool)
	mappingsService := mappings.NewService(mappingsRepo)
	mappingsHandler := mappings.NewHandler(logger, mappingsService)

	journalRepo := journal.NewRepository(dbpool)
	journalService := journal.NewService(journalRepo, auditLogger)
	journalHandler := journal.NewHandler(logger, journalService)

	statementRepo := statement.NewRepository(dbpool)
	statementCache := statement.NewCache(redisClient, cfg.StatementCacheTTL)
	statementService := statement.NewService(statementRepo, statementCache)

	var pdfRenderer statement.PDFRenderer
	if cfg.GotenbergURL != "" {
		gotenberg := report.NewClient(cfg.GotenbergURL)
		if err := gotenberg.Ping(ctx); err != nil {
			logger.Warn("gotenberg ping", slog.Any("error", err))
		}
		pdfRenderer = report.NewRenderer(gotenberg)
	}
	statementHandler := statement.NewHandler(logger, statementService, pdfRenderer)

	periodsRepo := periods.NewRepository(dbpool)
	periodsService := periods.NewService(logger, periodsRepo, auditLogger, queueClient)
	periodsService.WithCloseTimeout(cfg.CloseTimeout)
	periodsHandler := periods.NewHandler(logger, periodsService)

	arRepo := ar.NewRepository(dbpool)
	arService := ar.NewService(logger, arRepo, queueClient, auditLogger)
	arHandler := ar.NewHandler(logger, arService)

	apRepo := ap.NewRepository(dbpool)
	apService := ap.NewService(logger, apRepo, queueClient, auditLogger)
	apHandler := ap.NewHandler(logger, apService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AccountsHandler:  accountsHandler,
		MappingsHandler:  mappingsHandler,
		JournalHandler:   journalHandler,
		StatementHandler: statementHandler,
		PeriodsHandler:   periodsHandler,
		ARHandler:        arHandler,
		APHandler:        apHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
