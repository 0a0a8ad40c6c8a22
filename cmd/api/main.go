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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/feedback"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(reg)
	catalogMetrics := metrics.NewCatalogMetrics(reg)
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)

	readiness := map[string]controllers.Pinger{}
	infra := routes.Infra{Gatherer: reg, Readiness: readiness}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
		readiness["redis"] = redisClient
		infra.Idempotency = redisClient
		infra.RateLimits = redisClient
	}

	var storage cart.Storage
	switch cfg.Cart.Backend {
	case config.CartBackendRedis:
		storage = cart.NewRedisStorage(redisClient, cfg.Cart.SnapshotTTL)
	case config.CartBackendSQL:
		dbClient, dbErr := db.New(ctx, cfg.DB, logg)
		if dbErr != nil {
			return dbErr
		}
		defer func() { err = multierr.Append(err, dbClient.Close()) }()
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return err
		}
		readiness["database"] = dbClient
		storage = cart.NewSQLStorage(dbClient.DB())
	default:
		logg.Warn(ctx, "cart backend is in-memory, carts are lost on restart")
		storage = cart.NewMemoryStorage()
	}

	var products catalog.Service = catalog.NewClient(
		catalog.WithBaseURL(cfg.Catalog.BaseURL),
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithMetrics(catalogMetrics),
		catalog.WithLogger(logg),
	)
	if redisClient != nil {
		products = catalog.NewCachedService(products, redisClient, cfg.Catalog.CacheTTL, logg, catalogMetrics)
	}

	sessions, err := cart.NewSessions(storage, cfg.Cart.MaxSessions, cartMetrics, cart.WithLogger(logg))
	if err != nil {
		return err
	}

	feedbackReg, err := feedback.NewRegistry(cfg.Cart.MaxSessions, feedback.Timing{
		AddingDelay: cfg.Feedback.AddingDelay,
		SuccessHold: cfg.Feedback.SuccessHold,
	})
	if err != nil {
		return err
	}
	defer feedbackReg.Close()

	checkoutSvc := checkout.NewService(checkout.Pricing{
		FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
		ShippingFee:           cfg.Checkout.ShippingFee,
		TaxRate:               cfg.Checkout.TaxRate,
	}, cfg.Checkout.ProcessingDelay,
		checkout.WithLogger(logg),
		checkout.WithMetrics(checkoutMetrics),
	)

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"cart_backend": cfg.Cart.Backend,
	})

	router := routes.NewRouter(cfg, logg, routes.Services{
		Catalog:  products,
		Carts:    sessions,
		Feedback: feedbackReg,
		Checkout: checkoutSvc,
	}, infra)
	// Closing the feedback registry ends open phase streams so Shutdown can drain.
	server := routes.NewServer(addr, router, feedbackReg.Close)

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
