package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/codtrack/fulfillment-engine/api/responses"
	"github.com/codtrack/fulfillment-engine/pkg/config"
	"github.com/codtrack/fulfillment-engine/pkg/db"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
	"github.com/codtrack/fulfillment-engine/pkg/redis"
)

const healthCheckTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Fulfillment-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Fulfillment-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		components := map[string]string{}
		healthy := true

		components["database"] = pingStatus(ctx, logg, "database", dbP)
		if components["database"] != "ok" {
			healthy = false
		}
		components["redis"] = pingStatus(ctx, logg, "redis", redisP)
		if components["redis"] != "ok" {
			healthy = false
		}

		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		responses.WriteSuccessStatus(w, code, map[string]any{
			"status":     status,
			"components": components,
		})
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func pingStatus(ctx context.Context, logg *logger.Logger, name string, p pinger) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		if logg != nil {
			logg.Error(logg.WithFields(ctx, map[string]any{"component": name}), "health check failed", err)
		}
		return "unavailable"
	}
	return "ok"
}
