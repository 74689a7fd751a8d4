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

	"github.com/odyssey-erp/odyssey-stock/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	"github.com/odyssey-erp/odyssey-stock/internal/app"
	"github.com/odyssey-erp/odyssey-stock/internal/dashboard"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
	"github.com/odyssey-erp/odyssey-stock/internal/observability"
	"github.com/odyssey-erp/odyssey-stock/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-stock/internal/profile"
	"github.com/odyssey-erp/odyssey-stock/internal/sales"
	"github.com/odyssey-erp/odyssey-stock/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Warn("redis unavailable, realtime feed and background imports disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}
	redisReady := redisClient != nil

	stores, closeStores, err := app.OpenStores(ctx, cfg, logger, redisClient)
	if err != nil {
		logger.Error("open stores", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStores()

	metrics := observability.NewMetrics()
	rules := cfg.DateRules()
	engine := inventory.NewEngine(rules)
	evaluator := alerts.NewEvaluator(rules)

	inventoryService := inventory.NewService(stores.Products, engine, stores.Audit, logger)
	alertService := alerts.NewService(inventoryService, evaluator, logger)
	salesService := sales.NewService(stores.Sales, logger, nil)
	dashboardService := dashboard.NewService(inventoryService, evaluator, salesService)
	profileService := profile.NewService(stores.Profiles)
	reconciler := importer.NewReconciler(stores.Products, rules, metrics, logger)

	if args := os.Args[1:]; len(args) > 0 && args[0] != "serve" {
		code := cli.Run(ctx, args, cli.Deps{
			Products: stores.Products,
			Alerts:   alertService,
			Rules:    rules,
			Redis:    cfg.AsynqRedis(),
			Links:    cfg.LinkPolicy(),
		})
		closeStores()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		os.Exit(code)
	}

	var enqueuer importer.Enqueuer
	var jobHandler *jobs.Handler
	if redisReady {
		redisOpts := cfg.AsynqRedis()
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		enqueuer = jobClient

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		AlertsHandler:    alerts.NewHandler(logger, alertService),
		SalesHandler:     sales.NewHandler(logger, salesService),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService, inventoryService),
		ImportHandler:    importer.NewHandler(logger, reconciler, enqueuer, stores.Idempotency, cfg.LinkPolicy()),
		ProfileHandler:   profile.NewHandler(logger, profileService),
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
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
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
