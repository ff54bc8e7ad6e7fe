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

	"github.com/abhishekY2401/product-service/internal/inventory"
	"github.com/abhishekY2401/product-service/internal/orders"
	"github.com/abhishekY2401/product-service/internal/products"
	"github.com/abhishekY2401/product-service/pkg/broker"
	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/db"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/instance"
	"github.com/abhishekY2401/product-service/pkg/kafka"
	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
	"github.com/abhishekY2401/product-service/pkg/migrate"
	"github.com/abhishekY2401/product-service/pkg/outbox"
	"github.com/abhishekY2401/product-service/pkg/outbox/idempotency"
	"github.com/abhishekY2401/product-service/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "worker"

	logg = logger.ForService("worker", cfg.App)

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

	conn, err := broker.Open(ctx, cfg, true, logg)
	requireResource(ctx, logg, "broker", err)
	defer func() {
		if err := conn.Close(); err != nil {
			logg.Error(ctx, "error closing broker connection", err)
		}
	}()

	topics := events.TopicsFromConfig(cfg.Broker)
	emitter, err := events.NewEmitter(conn, topics, cfg.Inventory.PublishTimeout)
	requireResource(ctx, logg, "event emitter", err)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	promRegistry := prometheus.NewRegistry()
	metrics.RegisterRuntime(promRegistry)
	inventoryMetrics := metrics.NewInventoryMetrics(promRegistry)

	strategy, err := inventory.NewStrategy(cfg.Inventory.PublishStrategy, emitter, outboxService, inventoryMetrics)
	requireResource(ctx, logg, "publish strategy", err)
	coordinator, err := inventory.NewCoordinator(inventory.CoordinatorParams{
		DB:             dbClient,
		Repo:           products.NewRepository(dbClient.DB()),
		Strategy:       strategy,
		Logger:         logg,
		Metrics:        inventoryMetrics,
		StoreTimeout:   cfg.Inventory.StoreTimeout,
		PublishTimeout: cfg.Inventory.PublishTimeout,
	})
	requireResource(ctx, logg, "inventory coordinator", err)

	processorParams := orders.ProcessorParams{
		Inventory:    coordinator,
		Logger:       logg,
		Metrics:      metrics.NewConsumerMetrics(promRegistry),
		BatchTimeout: cfg.Inventory.OrderBatchTimeout,
	}
	if cfg.Inventory.PublishStrategy == config.PublishStrategyOutbox {
		processorParams.Outbox = outboxService
		processorParams.DB = dbClient
	} else {
		processorParams.Emitter = emitter
	}
	processor, err := orders.NewBatchProcessor(processorParams)
	requireResource(ctx, logg, "order batch processor", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	consumer, err := orders.NewConsumer(processor, manager, topics, logg, processorParams.Metrics)
	requireResource(ctx, logg, "order consumer", err)

	var orderRunner runner
	if cfg.Broker.IsKafka() {
		source, err := kafka.NewConsumer(cfg.Kafka, topics.OrderPlaced, logg)
		requireResource(ctx, logg, "kafka consumer", err)
		defer func() {
			if err := source.Close(); err != nil {
				logg.Error(ctx, "error closing kafka consumer", err)
			}
		}()
		orderRunner, err = orders.NewKafkaRunner(source, consumer)
		requireResource(ctx, logg, "kafka runner", err)
	} else {
		orderRunner, err = orders.NewPubSubRunner(conn.PubSub().OrdersSubscription(), consumer)
		requireResource(ctx, logg, "pubsub runner", err)
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Runner: orderRunner,
		DB:     dbClient,
		Redis:  redisClient,
		Broker: conn,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"broker":      conn.Driver(),
		"strategy":    strategy.Name(),
	})
	logg.Info(runCtx, "starting worker")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return service.Run(groupCtx) })
	group.Go(func() error {
		return metrics.Serve(groupCtx, ":"+cfg.Service.MetricsPort, promRegistry, logg)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
