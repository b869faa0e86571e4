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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/buildmart-backend/api/routes"
	"github.com/angelmondragon/buildmart-backend/internal/catalog"
	"github.com/angelmondragon/buildmart-backend/internal/disputes"
	"github.com/angelmondragon/buildmart-backend/internal/issues"
	"github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/internal/performance"
	"github.com/angelmondragon/buildmart-backend/internal/settlements"
	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/db"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
	"github.com/angelmondragon/buildmart-backend/pkg/metrics"
	"github.com/angelmondragon/buildmart-backend/pkg/migrate"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox"
	"github.com/angelmondragon/buildmart-backend/pkg/redis"
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

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", routes.NewRouter(cfg, logg, deps))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server stopped")
	}
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	issuesRepo := issues.NewRepository(dbClient.DB())

	numbers, err := orders.NewNumberGenerator(redisClient)
	if err != nil {
		return routes.Dependencies{}, err
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:    ordersRepo,
		Tx:      dbClient,
		Outbox:  outboxService,
		Pricing: catalogRepo,
		Numbers: numbers,
		Config:  cfg.Orders,
		Metrics: engineMetrics,
		Logger:  logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	disputesService, err := disputes.NewService(disputes.ServiceParams{
		Repo:    disputes.NewRepository(dbClient.DB()),
		Orders:  ordersRepo,
		Issues:  issuesRepo,
		Tx:      dbClient,
		Outbox:  outboxService,
		Locks:   redisClient,
		Config:  cfg.Disputes,
		Metrics: engineMetrics,
		Logger:  logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	issuesService, err := issues.NewService(issues.ServiceParams{
		Repo:     issuesRepo,
		Orders:   ordersRepo,
		Disputes: disputesService,
		Tx:       dbClient,
		Outbox:   outboxService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
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
		return routes.Dependencies{}, err
	}

	performanceService, err := performance.NewService(performance.ServiceParams{
		Repo:   performance.NewRepository(dbClient.DB()),
		Config: cfg.Performance,
		Logger: logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:          dbClient,
		Redis:       redisClient,
		Orders:      ordersService,
		Issues:      issuesService,
		Disputes:    disputesService,
		Settlements: settlementsService,
		Performance: performanceService,
		Catalog:     catalogRepo,
	}, nil
}
