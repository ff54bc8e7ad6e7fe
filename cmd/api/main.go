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

	"github.com/abhishekY2401/product-service/api"
	"github.com/abhishekY2401/product-service/api/controllers"
	"github.com/abhishekY2401/product-service/api/routes"
	"github.com/abhishekY2401/product-service/internal/inventory"
	"github.com/abhishekY2401/product-service/internal/products"
	"github.com/abhishekY2401/product-service/pkg/broker"
	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/db"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/instance"
	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
	"github.com/abhishekY2401/product-service/pkg/migrate"
	"github.com/abhishekY2401/product-service/pkg/outbox"
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

	logg = logger.ForService("api", cfg.App)

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

	conn, err := broker.Open(context.Background(), cfg, false, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to connect to broker", err)
		os.Exit(1)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logg.Error(context.Background(), "error closing broker connection", err)
		}
	}()

	emitter, err := events.NewEmitter(conn, events.TopicsFromConfig(cfg.Broker), cfg.Inventory.PublishTimeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create event emitter", err)
		os.Exit(1)
	}
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	productRepo := products.NewRepository(dbClient.DB())

	productParams := products.ServiceParams{
		Repo:         productRepo,
		DB:           dbClient,
		Logger:       logg,
		StoreTimeout: cfg.Inventory.StoreTimeout,
		Emitter:      emitter,
	}
	if cfg.Inventory.PublishStrategy == config.PublishStrategyOutbox {
		productParams.Outbox = outboxService
	}
	productService, err := products.NewService(productParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	metrics.RegisterRuntime(promRegistry)
	inventoryMetrics := metrics.NewInventoryMetrics(promRegistry)

	strategy, err := inventory.NewStrategy(cfg.Inventory.PublishStrategy, emitter, outboxService, inventoryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to select publish strategy", err)
		os.Exit(1)
	}
	coordinator, err := inventory.NewCoordinator(inventory.CoordinatorParams{
		DB:             dbClient,
		Repo:           productRepo,
		Strategy:       strategy,
		Logger:         logg,
		Metrics:        inventoryMetrics,
		StoreTimeout:   cfg.Inventory.StoreTimeout,
		PublishTimeout: cfg.Inventory.PublishTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory coordinator", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"database":    dbClient,
		conn.Driver(): conn,
	}
	handler := routes.NewRouter(cfg, logg, productService, coordinator, readiness, promRegistry)
	server := api.NewServer(cfg, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"addr":     server.Addr,
		"instance": instance.GetID(),
		"broker":   conn.Driver(),
		"strategy": strategy.Name(),
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
	logg.Info(ctx, "api server stopped")
}
