package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tradeflow-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/tradeflow-backend/api/controllers/orders"
	"github.com/angelmondragon/tradeflow-backend/api/middleware"
	"github.com/angelmondragon/tradeflow-backend/internal/assignments"
	"github.com/angelmondragon/tradeflow-backend/internal/fulfillers"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications/feed"
	"github.com/angelmondragon/tradeflow-backend/internal/orders"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	assignmentsSvc assignments.Service,
	fulfillersSvc fulfillers.Service,
	notificationsSvc notifications.Service,
	hub *feed.Hub,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	var (
		cachePinger controllers.Pinger
		idemStore   redis.IdempotencyStore
		limiter     middleware.RateLimiterStore
	)
	if redisClient != nil {
		cachePinger = redisClient
		idemStore = redisClient
		limiter = redisClient
	}

	writes := middleware.RateLimit(middleware.RateLimitPolicy{
		Name:        "writes",
		Window:      cfg.RateLimit.Window,
		CallerLimit: cfg.RateLimit.CallerLimit,
		IPLimit:     cfg.RateLimit.IPLimit,
	}, limiter, logg)
	idempotent := middleware.Idempotency(idemStore, logg, middleware.DefaultIdempotencyTTL)
	createOnce := middleware.Idempotency(idemStore, logg, middleware.OrderCreateIdempotencyTTL)
	adminOnly := middleware.RequireRole(logg, enums.RoleSuperAdmin)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.QueryTokenAuth(cfg.JWT, logg))
			r.Get("/notifications/feed", controllers.NotificationFeed(hub, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(ordersSvc, logg))
				r.With(writes, createOnce).Post("/", ordercontrollers.Create(ordersSvc, logg))
				r.With(adminOnly).Get("/changes", ordercontrollers.Changes(ordersSvc, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
				r.With(writes, adminOnly).Delete("/{orderId}", ordercontrollers.Remove(ordersSvc, logg))
				r.With(writes).Put("/{orderId}/status", ordercontrollers.SetStatus(ordersSvc, logg))
				r.With(writes, idempotent).Post("/{orderId}/assign", ordercontrollers.Assign(assignmentsSvc, logg))
				r.With(writes, idempotent).Post("/{orderId}/unassign", ordercontrollers.Unassign(assignmentsSvc, logg))
				r.Get("/{orderId}/assignments", ordercontrollers.Assignments(assignmentsSvc, logg))
			})

			r.Route("/fulfillers", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.RoleSuperAdmin, enums.RoleManufacturer)).
					Get("/", controllers.ListFulfillers(fulfillersSvc, logg))
				r.With(writes, adminOnly, idempotent).Post("/", controllers.RegisterFulfiller(fulfillersSvc, logg))
			})

			r.Get("/notifications", controllers.ListNotifications(notificationsSvc, logg))
			r.With(writes).Post("/notifications/subscribe", controllers.SubscribeNotifications(notificationsSvc, logg))
			r.With(writes).Post("/notifications/seen-all", controllers.MarkAllNotificationsSeen(notificationsSvc, logg))
			r.With(writes).Post("/notifications/{notificationId}/seen", controllers.MarkNotificationSeen(notificationsSvc, logg))
		})
	})

	return r
}
