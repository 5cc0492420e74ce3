package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threadline-ai/threadline-backend/api/routes"
	bom "github.com/threadline-ai/threadline-backend/internal/boms"
	forecast "github.com/threadline-ai/threadline-backend/internal/forecasts"
	"github.com/threadline-ai/threadline-backend/internal/notifications"
	"github.com/threadline-ai/threadline-backend/internal/pipeline"
	product "github.com/threadline-ai/threadline-backend/internal/products"
	supplier "github.com/threadline-ai/threadline-backend/internal/suppliers"
	"github.com/threadline-ai/threadline-backend/pkg/config"
	"github.com/threadline-ai/threadline-backend/pkg/db"
	"github.com/threadline-ai/threadline-backend/pkg/inference"
	"github.com/threadline-ai/threadline-backend/pkg/instance"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/metrics"
	"github.com/threadline-ai/threadline-backend/pkg/migrate"
	"github.com/threadline-ai/threadline-backend/pkg/outbox"
	"github.com/threadline-ai/threadline-backend/pkg/ratelimit"
	"github.com/threadline-ai/threadline-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)
	collaboratorMetrics := metrics.NewCollaboratorMetrics(registry)

	inferenceClient, err := inference.NewClient(cfg.Inference, logg, collaboratorMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create inference client", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	productRepo := product.NewRepository(dbClient.DB())
	bomRepo := bom.NewRepository(dbClient.DB())
	supplierRepo := supplier.NewRepository(dbClient.DB())
	forecastRepo := forecast.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())
	runRepo := pipeline.NewRunRepository(dbClient.DB())

	productService, err := product.NewService(productRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	bomService, err := bom.NewService(bomRepo, dbClient, productRepo, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create bom service", err)
		os.Exit(1)
	}

	supplierService, err := supplier.NewService(supplierRepo, productRepo, bomRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create supplier service", err)
		os.Exit(1)
	}

	forecastService, err := forecast.NewService(forecastRepo, productRepo, inferenceClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create forecast service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	lease, err := pipeline.NewLease(redisClient, cfg.Pipeline.LeaseTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline lease", err)
		os.Exit(1)
	}

	limiter, err := ratelimit.New(cfg.Pipeline.SupplierRatePerSec, cfg.Pipeline.SupplierBurst)
	if err != nil {
		logg.Error(context.Background(), "failed to create rate limiter", err)
		os.Exit(1)
	}

	runner, err := pipeline.NewRunner(cfg.Pipeline.WorkerCount, cfg.Pipeline.QueueSize, logg, pipelineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline runner", err)
		os.Exit(1)
	}

	pipelineService, err := pipeline.NewService(pipeline.Deps{
		Config:    cfg.Pipeline,
		DBClient:  dbClient,
		Products:  productRepo,
		BOMs:      bomRepo,
		Suppliers: supplierRepo,
		Forecasts: forecastRepo,
		Runs:      runRepo,
		Inference: inferenceClient,
		Lease:     lease,
		Limiter:   limiter,
		Runner:    runner,
		Outbox:    outboxService,
		Logger:    logg,
		Metrics:   pipelineMetrics,
		WorkerID:  instance.GetID(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner.Start(ctx)
	defer runner.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			inferenceClient,
			productService,
			bomService,
			supplierService,
			forecastService,
			notificationsService,
			pipelineService,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
		}
	}

	logg.Info(logCtx, "api server shutting down gracefully")
}
