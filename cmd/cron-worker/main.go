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
	"go.uber.org/multierr"

	"github.com/shipdesk/shipdesk-backend/internal/carrier"
	"github.com/shipdesk/shipdesk-backend/internal/cron"
	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/internal/shipments"
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

const lockKeyFormat = "shipdesk:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

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

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)

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

	carrierSvc, err := carrier.NewService(carrier.ServiceParams{
		Repo:    carrier.NewRepository(dbClient.DB()),
		Sealer:  sealer,
		Gateway: gateway,
		Limiter: redisClient,
		Logger:  logg,
	})
	if err != nil {
		return err
	}
	shipmentsSvc, err := shipments.NewService(shipments.ServiceParams{
		Repo:     shipments.NewRepository(dbClient.DB()),
		Orders:   orders.NewRepository(dbClient.DB()),
		Accounts: carrierSvc,
		Gateway:  gateway,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	syncJob, err := cron.NewShipmentSyncJob(cron.ShipmentSyncParams{
		Lister:     shipments.NewInFlightLister(dbClient.DB()),
		Refresher:  shipmentsSvc,
		Metrics:    cronMetrics,
		Logger:     logg,
		StaleAfter: cfg.Sync.StaleAfter,
		BatchSize:  cfg.Sync.BatchSize,
		MaxPerRun:  cfg.Sync.MaxPerRun,
	})
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Sync.LockTTL)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(syncJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Sync.Interval,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
