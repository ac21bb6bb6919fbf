package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codtrack/fulfillment-engine/internal/assignments"
	"github.com/codtrack/fulfillment-engine/internal/cron"
	"github.com/codtrack/fulfillment-engine/internal/orders"
	"github.com/codtrack/fulfillment-engine/internal/settings"
	"github.com/codtrack/fulfillment-engine/internal/strategy"
	"github.com/codtrack/fulfillment-engine/internal/workers"
	"github.com/codtrack/fulfillment-engine/pkg/config"
	"github.com/codtrack/fulfillment-engine/pkg/db"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
	"github.com/codtrack/fulfillment-engine/pkg/metrics"
	"github.com/codtrack/fulfillment-engine/pkg/migrate"
	"github.com/codtrack/fulfillment-engine/pkg/redis"
)

const (
	lockKeyFormat = "fulfill:expiry-worker:lock:%s"

	// The sweep runs every minute; the lock only needs to outlive one
	// cycle, not a day.
	lockTTL = 5 * time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "expiry-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "expiry-worker"

	logg = logger.New(logger.Options{
		ServiceName: "expiry-worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	assignRepo := assignments.NewRepository(conn)

	settingsSvc, err := settings.NewService(settings.NewRepository(conn), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	assignMetrics := metrics.NewAssignmentMetrics(prometheus.DefaultRegisterer)

	assignSvc, err := assignments.NewService(assignments.ServiceParams{
		Repo:     assignRepo,
		Workers:  workers.NewRepository(conn),
		Orders:   orders.NewReader(conn),
		Settings: settingsSvc,
		Selector: strategy.NewSelector(nil),
		Tx:       dbClient,
		Logger:   logg,
		Metrics:  assignMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignments service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewExpiryJob(cron.ExpiryJobParams{
		Logger:    logg,
		Reader:    assignRepo,
		Expirer:   assignSvc,
		Settings:  settingsSvc,
		Metrics:   assignMetrics,
		BatchSize: cfg.Expiry.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expiry job", err)
		os.Exit(1)
	}

	autoAssignJob, err := cron.NewAutoAssignJob(cron.AutoAssignJobParams{
		Logger:    logg,
		Orders:    assignRepo,
		Assigner:  assignSvc,
		Settings:  settingsSvc,
		BatchSize: cfg.Expiry.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auto-assign job", err)
		os.Exit(1)
	}

	callbackJob, err := cron.NewCallbackOverdueJob(logg, assignRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create callback overdue job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), lockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(autoAssignJob, expiryJob, callbackJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Expiry.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	go serveMetrics(ctx, logg, cfg.Expiry.MetricsPort)

	logg.Info(ctx, "starting expiry worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "expiry worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "expiry worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
