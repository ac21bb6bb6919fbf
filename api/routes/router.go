package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codtrack/fulfillment-engine/api/controllers"
	"github.com/codtrack/fulfillment-engine/api/middleware"
	"github.com/codtrack/fulfillment-engine/internal/assignments"
	"github.com/codtrack/fulfillment-engine/internal/callbacks"
	"github.com/codtrack/fulfillment-engine/internal/orders"
	"github.com/codtrack/fulfillment-engine/internal/settings"
	"github.com/codtrack/fulfillment-engine/internal/workers"
	"github.com/codtrack/fulfillment-engine/pkg/config"
	"github.com/codtrack/fulfillment-engine/pkg/db"
	"github.com/codtrack/fulfillment-engine/pkg/logger"
	"github.com/codtrack/fulfillment-engine/pkg/redis"
)

// Services bundles everything the HTTP surface dispatches to.
type Services struct {
	Assignments assignments.Service
	Orders      orders.Service
	Workers     workers.Service
	Settings    settings.Service
	Callbacks   callbacks.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	var redisPinger redis.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	supervisorOnly := middleware.RequireAnyRole(logg, "supervisor", "admin")

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
			r.Use(middleware.RateLimit(redisClient, logg))
		}

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/my-pending", controllers.MyPendingAssignments(svcs.Assignments, logg))
			r.Get("/my-active", controllers.MyActiveAssignments(svcs.Assignments, logg))
			r.Get("/unassigned", controllers.UnassignedOrders(svcs.Assignments, logg))
			r.Get("/callbacks/overdue", controllers.OverdueCallbacks(svcs.Callbacks, logg))

			r.Post("/self-assign", controllers.SelfAssign(svcs.Assignments, logg))
			r.Post("/bulk-complete-suivi", controllers.BulkCompleteSuivi(svcs.Assignments, logg))

			r.Post("/{assignmentId}/take", controllers.Take(svcs.Assignments, logg))
			r.Post("/{assignmentId}/complete", controllers.Complete(svcs.Assignments, logg))
			r.Post("/{assignmentId}/complete-suivi", controllers.CompleteSuivi(svcs.Assignments, logg))
			r.Post("/{assignmentId}/complete-quality", controllers.CompleteQuality(svcs.Assignments, logg))
			r.Post("/{assignmentId}/release", controllers.Release(svcs.Assignments, logg))
			r.Post("/{assignmentId}/schedule-callback", controllers.ScheduleCallback(svcs.Callbacks, logg))

			r.Group(func(r chi.Router) {
				r.Use(supervisorOnly)
				r.Post("/assign", controllers.Assign(svcs.Assignments, logg))
				r.Post("/bulk-assign", controllers.BulkAssign(svcs.Assignments, logg))
				r.Post("/bulk-reassign", controllers.BulkReassign(svcs.Assignments, logg))
				r.Post("/{assignmentId}/reassign", controllers.Reassign(svcs.Assignments, logg))
				r.Get("/active", controllers.ActiveAssignments(svcs.Assignments, logg))
				r.Get("/workers-stats", controllers.WorkersStats(svcs.Assignments, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/unassigned", controllers.UnassignedOrders(svcs.Assignments, logg))
			r.Post("/bulk-grab", controllers.BulkGrabOrders(svcs.Orders, logg))
			r.Post("/{orderId}/grab", controllers.GrabOrder(svcs.Orders, logg))
			r.Post("/{orderId}/release-grab", controllers.ReleaseOrderGrab(svcs.Orders, logg))
		})

		r.Route("/worker-configs", func(r chi.Router) {
			r.Get("/me", controllers.MyWorkerConfig(svcs.Workers, logg))
			r.Put("/me", controllers.UpdateMyWorkerConfig(svcs.Workers, logg))
			r.Post("/me/online", controllers.SetOnline(svcs.Workers, logg, true))
			r.Post("/me/offline", controllers.SetOnline(svcs.Workers, logg, false))

			r.Group(func(r chi.Router) {
				r.Use(supervisorOnly)
				r.Get("/available", controllers.AvailableWorkers(svcs.Workers, logg))
				r.Get("/{userId}", controllers.WorkerConfig(svcs.Workers, logg))
				r.Put("/{userId}", controllers.UpdateWorkerConfig(svcs.Workers, logg))
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Use(supervisorOnly)
			r.Get("/", controllers.GetSettings(svcs.Settings, logg))
			r.Put("/", controllers.UpdateSettings(svcs.Settings, logg))
		})
	})

	return r
}
