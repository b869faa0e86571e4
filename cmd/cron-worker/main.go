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

	"github.com/angelmondragon/buildmart-backend/internal/catalog"
	"github.com/angelmondragon/buildmart-backend/internal/cron"
	"github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/internal/settlements"
	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/db"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
	"github.com/angelmondragon/buildmart-backend/pkg/metrics"
	"github.com/angelmondragon/buildmart-backend/pkg/migrate"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox"
	"github.com/angelmondragon/buildmart-backend/pkg/redis"
)

const (
	lockKeyFormat  = "bm:cron-worker:lock:%s"
	sweepBatchSize = 200
)

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
		Console:     cfg.App.LogFormat == "console",
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

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := redis.NewLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"jobs": registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	numbers, err := orders.NewNumberGenerator(redisClient)
	if err != nil {
		return nil, err
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Outbox:  outboxService,
		Pricing: catalog.NewRepository(dbClient.DB()),
		Numbers: numbers,
		Config:  cfg.Orders,
		Metrics: engineMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}

	settlementsService, err := settlements.NewService(settlements.ServiceParams{
		Repo:    settlements.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Outbox:  outboxService,
		Config:  cfg.Settlement,
		Metrics: engineMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}

	offerExpiry, err := cron.NewOfferExpiryJob(cron.OrderSweepJobParams{Logger: logg, Orders: ordersService, BatchSize: sweepBatchSize})
	if err != nil {
		return nil, err
	}
	autoComplete, err := cron.NewOrderAutoCompleteJob(cron.OrderSweepJobParams{Logger: logg, Orders: ordersService, BatchSize: sweepBatchSize})
	if err != nil {
		return nil, err
	}
	settlementBatch, err := cron.NewSettlementJob(cron.SettlementJobParams{Logger: logg, Settlements: settlementsService})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	for _, job := range []cron.Job{offerExpiry, autoComplete, settlementBatch, retention} {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
