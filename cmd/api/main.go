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

	"github.com/angelmondragon/tradeflow-backend/api/routes"
	"github.com/angelmondragon/tradeflow-backend/internal/assignments"
	"github.com/angelmondragon/tradeflow-backend/internal/fulfillers"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications/feed"
	"github.com/angelmondragon/tradeflow-backend/internal/orders"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/instance"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/migrate"
	"github.com/angelmondragon/tradeflow-backend/pkg/redis"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
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

	if err := dbClient.RegisterPoolMetrics(prometheus.DefaultRegisterer, "api"); err != nil {
		logg.Warn(context.Background(), "database pool metrics unavailable")
	}

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

	policy := visibility.PolicyFor(cfg.Orders)
	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:  ordersRepo,
		Tx:    dbClient,
		Rules: cfg.Orders,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	fulfillersRepo := fulfillers.NewRepository(dbClient.DB())
	fulfillersService, err := fulfillers.NewService(fulfillersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillers service", err)
		os.Exit(1)
	}

	assignmentsService, err := assignments.NewService(assignments.ServiceParams{
		Orders:      ordersRepo,
		Fulfillers:  fulfillersRepo,
		Assignments: assignments.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Policy:      policy,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignments service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), ordersService)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := feed.NewHub()
	go hub.Run(ctx)

	channel := redisClient.ChannelKey(cfg.Notifications.Channel)
	pubsub, err := redisClient.Subscribe(ctx, channel)
	if err != nil {
		logg.Error(ctx, "failed to subscribe to notification channel", err)
		os.Exit(1)
	}
	defer pubsub.Close()
	go feed.Relay(ctx, pubsub.Channel(), hub, logg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ordersService,
			assignmentsService,
			fulfillersService,
			notificationsService,
			hub,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

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
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}
