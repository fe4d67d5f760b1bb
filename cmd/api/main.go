package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/mateoreyes/storefront-pos/api/routes"
	"github.com/mateoreyes/storefront-pos/internal/cart"
	"github.com/mateoreyes/storefront-pos/internal/catalog"
	checkoutsvc "github.com/mateoreyes/storefront-pos/internal/checkout"
	"github.com/mateoreyes/storefront-pos/internal/inventory"
	"github.com/mateoreyes/storefront-pos/internal/sales"
	"github.com/mateoreyes/storefront-pos/pkg/config"
	"github.com/mateoreyes/storefront-pos/pkg/db"
	"github.com/mateoreyes/storefront-pos/pkg/logger"
	"github.com/mateoreyes/storefront-pos/pkg/metrics"
	"github.com/mateoreyes/storefront-pos/pkg/migrate"
	"github.com/mateoreyes/storefront-pos/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(registry)

	conn := dbClient.DB()
	inventoryRepo := inventory.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	salesRepo := sales.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)

	catalogService, err := catalog.NewService(catalogRepo, logg)
	requireService(logg, "catalog", err)

	inventoryService, err := inventory.NewService(dbClient, inventoryRepo, logg)
	requireService(logg, "inventory", err)

	cartService, err := cart.NewService(dbClient, cartRepo, inventoryRepo, logg)
	requireService(logg, "cart", err)

	checkoutService, err := checkoutsvc.NewService(dbClient, cartRepo, salesRepo, inventoryRepo, logg, orderMetrics)
	requireService(logg, "checkout", err)

	salesService, err := sales.NewService(dbClient, salesRepo, inventoryRepo, logg, orderMetrics)
	requireService(logg, "sales", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			catalogService,
			inventoryService,
			cartService,
			checkoutService,
			salesService,
		),
	}

	errs := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
			return
		}
		errs <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := multierr.Append(server.Shutdown(shutdownCtx), <-errs); err != nil {
			logg.Error(ctx, "api server shutdown with errors", err)
			os.Exit(1)
		}
	case err := <-errs:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(context.Background(), "service", name), "failed to create service", err)
	os.Exit(1)
}
