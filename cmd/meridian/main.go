package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-ops/meridian-ops/internal/app"
	"github.com/meridian-ops/meridian-ops/internal/billing"
	"github.com/meridian-ops/meridian-ops/internal/ledger"
	"github.com/meridian-ops/meridian-ops/internal/masterdata"
	"github.com/meridian-ops/meridian-ops/internal/observability"
	"github.com/meridian-ops/meridian-ops/internal/payouts"
	"github.com/meridian-ops/meridian-ops/internal/platform/db"
	"github.com/meridian-ops/meridian-ops/internal/requirements"
	"github.com/meridian-ops/meridian-ops/internal/shared"
	"github.com/meridian-ops/meridian-ops/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	domainMetrics := observability.NewDomainMetrics(metrics.Registerer())

	auditSink := shared.NewAuditLogger(pool)
	notifier := shared.NewPGNotifier(pool)

	suggestionCache := requirements.NewCache(redisClient, cfg.SuggestionCacheTTL)
	requirementsRepo := requirements.NewRepository(pool)
	requirementsService := requirements.NewService(requirementsRepo, suggestionCache, auditSink, logger)

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, auditSink, notifier, requirementsService, domainMetrics, logger)

	payoutsRepo := payouts.NewRepository(pool)
	payoutsService := payouts.NewService(payoutsRepo, auditSink, domainMetrics, logger)

	ledgerService := ledger.NewService(ledger.NewRepository(pool), logger)

	masterdataRepo := masterdata.NewRepository(pool)

	asynqRedis := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobsClient, err := jobs.NewClient(asynqRedis)
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(asynq.NewInspector(asynqRedis), jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		BillingHandler:      billing.NewHandler(logger, billingService),
		LedgerHandler:       ledger.NewHandler(logger, ledgerService),
		RequirementsHandler: requirements.NewHandler(logger, requirementsService),
		PayoutsHandler:      payouts.NewHandler(logger, payoutsService),
		MasterDataHandler:   masterdata.NewHandler(logger, masterdataRepo),
		JobsHandler:         jobsHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
