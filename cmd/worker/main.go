package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	"github.com/odyssey-erp/odyssey-stock/internal/app"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-stock/internal/jobs"
	"github.com/odyssey-erp/odyssey-stock/internal/observability"
	"github.com/odyssey-erp/odyssey-stock/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-stock/jobs"
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
	if cfg.StoreDriver == app.StoreDriverMemory {
		logger.Warn("worker runs against its own in-memory stores; imports will not reach the API process")
	}

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	stores, closeStores, err := app.OpenStores(ctx, cfg, logger, redisClient)
	if err != nil {
		logger.Error("open stores", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStores()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	locker := jobs.NewLocker(redisClient)
	rules := cfg.DateRules()

	inventoryService := inventory.NewService(stores.Products, inventory.NewEngine(rules), stores.Audit, logger)
	alertService := alerts.NewService(inventoryService, alerts.NewEvaluator(rules), logger)
	reconciler := importer.NewReconciler(stores.Products, rules, metrics, logger)

	importJob := jobs.NewImportJob(reconciler, locker, cfg.ImportFetchTimeout, logger, jobMetrics)
	importJob.Links = cfg.LinkPolicy()
	scanJob := jobs.NewAlertScanJob(alertService, stores.Products, metrics, locker, logger, jobMetrics)

	var cron []jobs.CronRegistration
	if cfg.AlertScanCron != "" {
		scanTask, err := jobs.NewAlertScanTask(cfg.AlertScanCron)
		if err != nil {
			logger.Error("build alert scan task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.AlertScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(1)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.AsynqRedis(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInventoryImport, Handler: importJob.Handle},
			{Type: jobs.TaskAlertScan, Handler: scanJob.Handle},
		},
		Cron: cron,
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
