package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/salesdesk/salesdesk/internal/dashboard"
	jobmetrics "github.com/salesdesk/salesdesk/internal/jobs"
)

// DashboardRefresher is the dashboard service's refresh.
type DashboardRefresher interface {
	Refresh(ctx context.Context) (dashboard.Overview, error)
}

// DashboardWarmupJob retires yesterday's cached figures and loads today's.
type DashboardWarmupJob struct {
	Account   Signer
	Dashboard DashboardRefresher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewDashboardWarmupJob wires the warmup handler.
func NewDashboardWarmupJob(account Signer, dash DashboardRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Account: account, Dashboard: dash, Logger: logger, Metrics: metrics}
}

// Handle processes TaskDashboardWarmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	tracker := j.Metrics.Track(ctx, TaskDashboardWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	logger := jobLogger(j.Logger, TaskDashboardWarmup)

	ctx, err := j.Account.Context(ctx)
	if err != nil {
		logger.Error("sign in", slog.Any("error", err))
		return err
	}
	overview, err := j.Dashboard.Refresh(ctx)
	if err != nil {
		logger.Error("refresh dashboard", slog.Any("error", err))
		return err
	}
	logger.Info("dashboard warmed",
		slog.Int64("orders_today", overview.Stats.TotalOrdersToday),
		slog.Int("low_stock", len(overview.LowStock)),
	)
	return nil
}
