package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/salesdesk/salesdesk/internal/api"
	jobmetrics "github.com/salesdesk/salesdesk/internal/jobs"
)

// Signer hands out a context the backend accepts.
type Signer interface {
	Context(ctx context.Context) (context.Context, error)
}

// LowStockScanner is the dashboard service's scan.
type LowStockScanner interface {
	ScanLowStock(ctx context.Context) ([]api.Product, error)
	Threshold() int
}

// LowStockScanJob refreshes the cached low-stock list.
type LowStockScanJob struct {
	Account Signer
	Scanner LowStockScanner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob wires the scan handler.
func NewLowStockScanJob(account Signer, scanner LowStockScanner, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Account: account, Scanner: scanner, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Scanner == nil {
		return errors.New("low stock scan: handler not configured")
	}
	tracker := j.Metrics.Track(ctx, TaskLowStockScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	logger := jobLogger(j.Logger, TaskLowStockScan)

	ctx, err := j.Account.Context(ctx)
	if err != nil {
		logger.Error("sign in", slog.Any("error", err))
		return err
	}
	items, err := j.Scanner.ScanLowStock(ctx)
	if err != nil {
		logger.Error("load low-stock products", slog.Any("error", err))
		if api.IsUnauthorized(err) || api.IsForbidden(err) {
			return errors.Join(err, asynq.SkipRetry)
		}
		return err
	}
	j.Metrics.SetLowStock(len(items))
	for _, p := range items {
		logger.Warn("low stock",
			slog.Int64("product_id", p.ID),
			slog.String("sku", p.SKU),
			slog.String("name", p.Name),
			slog.Int("stock", p.StockQuantity),
		)
	}
	logger.Info("low-stock scan complete", slog.Int("products", len(items)), slog.Int("threshold", j.Scanner.Threshold()))
	return nil
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
