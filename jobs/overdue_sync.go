package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// OverdueSyncer is implemented by the billing service.
type OverdueSyncer interface {
	SyncOverdue(ctx context.Context) (int, error)
}

// OverdueSyncJob runs the periodic issued-to-overdue flip.
type OverdueSyncJob struct {
	Billing OverdueSyncer
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewOverdueSyncJob initialises the overdue sync handler.
func NewOverdueSyncJob(billing OverdueSyncer, logger *slog.Logger) *OverdueSyncJob {
	return &OverdueSyncJob{
		Billing: billing,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one overdue sync run. The underlying service call is
// idempotent, so overlapping runs only cost a no-op transaction.
func (j *OverdueSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Billing == nil {
		return errors.New("overdue sync: handler not configured")
	}
	var payload OverdueSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	runID := uuid.New()
	start := j.clock()
	logger := j.Logger.With(
		slog.String("run_id", runID.String()),
		slog.String("reason", payload.Reason),
	)
	logger.Info("starting overdue sync")

	count, err := j.Billing.SyncOverdue(ctx)
	if err != nil {
		logger.Error("overdue sync failed", slog.Any("error", err))
		return err
	}

	logger.Info("overdue sync finished",
		slog.Int("flipped", count),
		slog.Duration("took", j.clock().Sub(start)))
	return nil
}
