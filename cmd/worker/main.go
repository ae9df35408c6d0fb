package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-ops/meridian-ops/internal/app"
	"github.com/meridian-ops/meridian-ops/internal/billing"
	"github.com/meridian-ops/meridian-ops/internal/observability"
	"github.com/meridian-ops/meridian-ops/internal/platform/db"
	"github.com/meridian-ops/meridian-ops/internal/requirements"
	"github.com/meridian-ops/meridian-ops/internal/shared"
	"github.com/meridian-ops/meridian-ops/jobs"
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
	requirementsService := requirements.NewService(requirements.NewRepository(pool), suggestionCache, auditSink, logger)

	billingService := billing.NewService(billing.NewRepository(pool), auditSink, notifier, requirementsService, domainMetrics, logger)

	overdueJob := jobs.NewOverdueSyncJob(billingService, logger)

	overdueTask, err := jobs.NewOverdueSyncTask(jobs.OverdueSyncPayload{Reason: "cron"})
	if err != nil {
		logger.Error("build overdue sync task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBillingOverdueSync, Handler: overdueJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueSyncCron, Task: overdueTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.String("cron", cfg.OverdueSyncCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
