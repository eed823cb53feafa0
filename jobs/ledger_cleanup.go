package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/salesdesk/salesdesk/internal/jobs"
)

// KeyCleaner drops submission keys older than a cutoff.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// LedgerCleanupJob trims the idempotency key table.
type LedgerCleanupJob struct {
	Keys    KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerCleanupJob wires the cleanup handler.
func NewLedgerCleanupJob(keys KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerCleanupJob {
	return &LedgerCleanupJob{Keys: keys, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLedgerCleanup tasks.
func (j *LedgerCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Keys == nil {
		return errors.New("ledger cleanup: handler not configured")
	}
	var payload LedgerCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionHours <= 0 {
		payload.RetentionHours = 24
	}
	tracker := j.Metrics.Track(ctx, TaskLedgerCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	retention := time.Duration(payload.RetentionHours) * time.Hour
	if err := j.Keys.Cleanup(ctx, retention); err != nil {
		jobLogger(j.Logger, TaskLedgerCleanup).Error("cleanup idempotency keys", slog.Any("error", err))
		return err
	}
	jobLogger(j.Logger, TaskLedgerCleanup).Info("idempotency keys trimmed", slog.Duration("retention", retention))
	return nil
}
