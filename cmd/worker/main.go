package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/threadline-ai/threadline-backend/internal/cron"
	"github.com/threadline-ai/threadline-backend/internal/notifications"
	"github.com/threadline-ai/threadline-backend/internal/pipeline"
	product "github.com/threadline-ai/threadline-backend/internal/products"
	"github.com/threadline-ai/threadline-backend/pkg/config"
	"github.com/threadline-ai/threadline-backend/pkg/db"
	"github.com/threadline-ai/threadline-backend/pkg/instance"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/metrics"
	"github.com/threadline-ai/threadline-backend/pkg/migrate"
	"github.com/threadline-ai/threadline-backend/pkg/outbox"
	"github.com/threadline-ai/threadline-backend/pkg/outbox/idempotency"
	"github.com/threadline-ai/threadline-backend/pkg/pubsub"
	"github.com/threadline-ai/threadline-backend/pkg/redis"
)

const retentionInterval = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	idempotencyManager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	notificationRepo := notifications.NewRepository(dbClient.DB())
	consumer, err := notifications.NewConsumer(
		notificationRepo,
		pubsubClient.NotificationSubscription(),
		idempotencyManager,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification consumer", err)
		os.Exit(1)
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.NewRegistry())

	requeueService, err := buildRequeueService(cfg, logg, dbClient, redisClient, cronMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create requeue cron service", err)
		os.Exit(1)
	}

	retentionService, err := buildRetentionService(cfg, logg, dbClient, redisClient, cronMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create retention cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return consumer.Run(groupCtx) })
	group.Go(func() error { return requeueService.Run(groupCtx) })
	group.Go(func() error { return retentionService.Run(groupCtx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}

// buildRequeueService runs the stale-run sweep on a short interval with its
// own lock so crash recovery does not wait on the daily retention cadence.
func buildRequeueService(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	cronMetrics *metrics.CronJobMetrics,
) (*cron.Service, error) {
	requeueJob, err := cron.NewPipelineRequeueJob(cron.PipelineRequeueJobParams{
		Logger:      logg,
		Runs:        pipeline.NewRunRepository(dbClient.DB()),
		Products:    product.NewRepository(dbClient.DB()),
		StaleRunAge: cfg.Pipeline.StaleRunAge,
	})
	if err != nil {
		return nil, err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey("pipeline-requeue"), cfg.Pipeline.RequeueInterval)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(requeueJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Pipeline.RequeueInterval,
	})
}

func buildRetentionService(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	cronMetrics *metrics.CronJobMetrics,
) (*cron.Service, error) {
	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, err
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey("retention"), 25*time.Hour)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(outboxJob, cleanupJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: retentionInterval,
	})
}
