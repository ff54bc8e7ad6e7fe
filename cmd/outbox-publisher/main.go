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

	"github.com/abhishekY2401/product-service/pkg/broker"
	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/db"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/instance"
	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
	"github.com/abhishekY2401/product-service/pkg/migrate"
	"github.com/abhishekY2401/product-service/pkg/outbox"
	"github.com/abhishekY2401/product-service/pkg/outbox/registry"
)

const serviceName = "outbox-publisher"

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

	conn, err := broker.Open(ctx, cfg, false, logg)
	requireResource(ctx, logg, "broker", err)
	// Close runs after the relay loop has returned so pending publishes flush.
	defer func() {
		if err := conn.Close(); err != nil {
			logg.Error(ctx, "error closing broker connection", err)
		}
	}()

	eventRegistry, err := registry.NewEventRegistry(events.TopicsFromConfig(cfg.Broker))
	requireResource(ctx, logg, "event registry", err)

	promRegistry := prometheus.NewRegistry()
	metrics.RegisterRuntime(promRegistry)
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Publisher:     conn,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(promRegistry),
		Readiness:     map[string]pinger{conn.Driver(): conn},
	})
	requireResource(ctx, logg, "outbox relay", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"broker":      conn.Driver(),
		"batch_size":  cfg.Outbox.BatchSize,
	})
	logg.Info(runCtx, "starting outbox publisher")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return service.Run(groupCtx) })
	group.Go(func() error {
		return metrics.Serve(groupCtx, ":"+cfg.Service.MetricsPort, promRegistry, logg)
	})
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "outbox publisher shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
