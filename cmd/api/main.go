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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/shipdesk/shipdesk-backend/api/routes"
	"github.com/shipdesk/shipdesk-backend/internal/carrier"
	"github.com/shipdesk/shipdesk-backend/internal/dispatch"
	"github.com/shipdesk/shipdesk-backend/internal/imports"
	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/internal/shipments"
	"github.com/shipdesk/shipdesk-backend/internal/webhooks"
	"github.com/shipdesk/shipdesk-backend/pkg/config"
	"github.com/shipdesk/shipdesk-backend/pkg/db"
	"github.com/shipdesk/shipdesk-backend/pkg/hfd"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/metrics"
	"github.com/shipdesk/shipdesk-backend/pkg/migrate"
	"github.com/shipdesk/shipdesk-backend/pkg/redis"
	"github.com/shipdesk/shipdesk-backend/pkg/retry"
	"github.com/shipdesk/shipdesk-backend/pkg/security"
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

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	dispatchMetrics := metrics.NewDispatchMetrics(registry)

	sealer, err := security.NewSealer(cfg.Secrets.SettingsKey)
	if err != nil {
		return err
	}

	gateway := hfd.NewClient(
		hfd.WithBaseURL(cfg.Carrier.BaseURL),
		hfd.WithLabelBaseURL(cfg.Carrier.LabelBaseURL),
		hfd.WithTimeout(cfg.Carrier.Timeout),
		hfd.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.Carrier.MaxAttempts,
			BaseDelay:   cfg.Carrier.BaseDelay,
			MaxDelay:    cfg.Carrier.MaxDelay,
		}),
		hfd.WithObserver(dispatchMetrics),
		hfd.WithLogger(logg),
	)

	services, err := buildServices(cfg, logg, dbClient, redisClient, sealer, gateway, dispatchMetrics)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
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

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sealer *security.Sealer,
	gateway *hfd.Client,
	dispatchMetrics *metrics.DispatchMetrics,
) (routes.Services, error) {
	ordersRepo := orders.NewRepository(dbClient.DB())
	shipmentsRepo := shipments.NewRepository(dbClient.DB())

	ordersSvc, err := orders.NewService(ordersRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	carrierSvc, err := carrier.NewService(carrier.ServiceParams{
		Repo:    carrier.NewRepository(dbClient.DB()),
		Sealer:  sealer,
		Gateway: gateway,
		Limiter: redisClient,
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	dispatchSvc, err := dispatch.NewService(dispatch.ServiceParams{
		Orders:          ordersRepo,
		Shipments:       shipmentsRepo,
		Accounts:        carrierSvc,
		Gateway:         gateway,
		Metrics:         dispatchMetrics,
		Logger:          logg,
		ErrorMessageCap: cfg.Bulk.ErrorMessageCap,
	})
	if err != nil {
		return routes.Services{}, err
	}

	shipmentsSvc, err := shipments.NewService(shipments.ServiceParams{
		Repo:     shipmentsRepo,
		Orders:   ordersRepo,
		Accounts: carrierSvc,
		Gateway:  gateway,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	importsSvc, err := imports.NewService(ordersSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	guard, err := webhooks.NewEventGuard(redisClient, cfg.Webhooks.DedupeTTL)
	if err != nil {
		return routes.Services{}, err
	}
	webhooksSvc, err := webhooks.NewService(webhooks.ServiceParams{
		Orders:     ordersSvc,
		Accounts:   carrierSvc,
		Dispatcher: dispatchSvc,
		Guard:      guard,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Orders:    ordersSvc,
		Dispatch:  dispatchSvc,
		Imports:   importsSvc,
		Carrier:   carrierSvc,
		Shipments: shipmentsSvc,
		Webhooks:  webhooksSvc,
	}, nil
}
