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
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/app"
	"github.com/salesdesk/salesdesk/internal/dashboard"
	"github.com/salesdesk/salesdesk/internal/observability"
	"github.com/salesdesk/salesdesk/internal/platform/cache"
	"github.com/salesdesk/salesdesk/internal/platform/db"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/jobs"
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
	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing("salesdesk-worker"))
	if err != nil {
		logger.Error("setup tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	client, err := api.New(cfg.APIBaseURL,
		api.WithCredentials(session.Credentials),
		api.WithObserver(metrics),
		api.WithLogger(logger),
		api.WithTimeout(cfg.APITimeout),
	)
	if err != nil {
		logger.Error("init api client", slog.Any("error", err))
		os.Exit(1)
	}

	account := jobs.NewServiceAccount(client, cfg.WorkerEmail, cfg.WorkerPassword)
	dash := dashboard.NewService(client, dashboard.NewCache(redisClient, cfg.DashboardCacheTTL), cfg.LowStockThreshold, logger)

	scanJob := jobs.NewLowStockScanJob(account, dash, logger, metrics.Jobs())
	warmupJob := jobs.NewDashboardWarmupJob(account, dash, logger, metrics.Jobs())

	retry := []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}
	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskLowStockScan, Handler: scanJob.Handle},
		{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
	}
	cron := []jobs.CronRegistration{
		{Spec: "*/30 * * * *", Task: jobs.NewLowStockScanTask(), Options: retry},
		{Spec: "15 1 * * *", Task: jobs.NewDashboardWarmupTask(), Options: retry},
	}

	if cfg.LedgerPGDSN != "" {
		pool, err := db.New(ctx, cfg.LedgerPGDSN)
		if err != nil {
			logger.Error("connect ledger database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.MigrateLedger(ctx, pool); err != nil {
			logger.Error("migrate ledger", slog.Any("error", err))
			os.Exit(1)
		}
		cleanupJob := jobs.NewLedgerCleanupJob(shared.NewIdempotencyStore(pool), logger, metrics.Jobs())
		cleanupTask, err := jobs.NewLedgerCleanupTask(int(cfg.IdempotencyRetention / time.Hour))
		if err != nil {
			logger.Error("build cleanup task", slog.Any("error", err))
			os.Exit(1)
		}
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskLedgerCleanup, Handler: cleanupJob.Handle})
		cron = append(cron, jobs.CronRegistration{Spec: "45 2 * * *", Task: cleanupTask, Options: retry})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.Redis().AsynqOpt(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    cfg.WorkerLocation(),
		Handlers:    handlers,
		Cron:        cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker started", slog.Int("handlers", len(handlers)), slog.Int("schedules", len(cron)))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
