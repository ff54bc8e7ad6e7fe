package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/abhishekY2401/product-service/internal/cron"
	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/db"
	"github.com/abhishekY2401/product-service/pkg/instance"
	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
	"github.com/abhishekY2401/product-service/pkg/migrate"
	"github.com/abhishekY2401/product-service/pkg/outbox"
	"github.com/abhishekY2401/product-service/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = serviceName
	logg = logger.ForService(serviceName, cfg.App)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()
	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	metrics.RegisterRuntime(promRegistry)
	cronMetrics := metrics.NewCronJobMetrics(promRegistry)

	service, err := buildService(cfg, logg, dbClient, redisClient, promRegistry, cronMetrics)
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"schedule":    cfg.Cron.Schedule,
	})
	logg.Info(runCtx, "starting cron worker")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return service.Run(groupCtx) })
	group.Go(func() error {
		return metrics.Serve(groupCtx, ":"+cfg.Service.MetricsPort, promRegistry, logg)
	})
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer, cronMetrics *metrics.CronJobMetrics) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(redisClient, lockKey(redisClient, cfg), cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		DLQ:        outbox.NewDLQRepository(dbClient.DB()),
		Metrics:    cronMetrics,
		Retention:  cfg.Cron.RetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("retention job: %w", err)
	}
	backlog, err := cron.NewOutboxBacklogJob(cron.OutboxBacklogJobParams{
		Logger:      logg,
		Repository:  outboxRepo,
		Metrics:     metrics.NewOutboxMetrics(reg),
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("backlog job: %w", err)
	}

	return cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(backlog, retention),
		Lock:       lock,
		Metrics:    cronMetrics,
		Schedule:   cfg.Cron.Schedule,
		JobTimeout: cfg.Cron.LockTTL,
	})
}

// lockKey is scoped per environment.
func lockKey(client *redis.Client, cfg *config.Config) string {
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	return client.LockKey(fmt.Sprintf("%s:%s", cfg.Cron.LockKey, env))
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
