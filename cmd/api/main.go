package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codtrack/fulfillment-engine/api/routes"
	"github.com/codtrack/fulfillment-engine/internal/assignments"
	"github.com/codtrack/fulfillment-engine/internal/callbacks"
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
	workersRepo := workers.NewRepository(conn)

	settingsSvc, err := settings.NewService(settings.NewRepository(conn), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	assignSvc, err := assignments.NewService(assignments.ServiceParams{
		Repo:     assignRepo,
		Workers:  workersRepo,
		Orders:   orders.NewReader(conn),
		Settings: settingsSvc,
		Selector: strategy.NewSelector(nil),
		Tx:       dbClient,
		Logger:   logg,
		Metrics:  metrics.NewAssignmentMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignments service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.NewRepository(conn), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	workersSvc, err := workers.NewService(workersRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create workers service", err)
		os.Exit(1)
	}

	callbacksSvc, err := callbacks.NewService(assignRepo, workersRepo, settingsSvc, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create callbacks service", err)
		os.Exit(1)
	}

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
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Assignments: assignSvc,
			Orders:      ordersSvc,
			Workers:     workersSvc,
			Settings:    settingsSvc,
			Callbacks:   callbacksSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
