package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tradeflow-backend/internal/cron"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	"github.com/angelmondragon/tradeflow-backend/internal/orders"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/instance"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/metrics"
	"github.com/angelmondragon/tradeflow-backend/pkg/migrate"
	"github.com/angelmondragon/tradeflow-backend/pkg/orderbackend"
	"github.com/angelmondragon/tradeflow-backend/pkg/redis"
	"github.com/angelmondragon/tradeflow-backend/pkg/visibility"
)

const serviceName = "notification-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = serviceName

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
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

	if err := dbClient.RegisterPoolMetrics(prometheus.DefaultRegisterer, "notification-worker"); err != nil {
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

	source, err := changeSource(cfg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create change source", err)
		os.Exit(1)
	}

	marks, err := notifications.NewRedisMarkStore(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create mark store", err)
		os.Exit(1)
	}

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Repo:      notificationsRepo,
		Source:    source,
		Marks:     marks,
		Publisher: redisClient,
		Channel:   redisClient.ChannelKey(cfg.Notifications.Channel),
		Policy:    visibility.PolicyFor(cfg.Orders),
		Metrics:   metrics.NewDispatchMetrics(prometheus.DefaultRegisterer),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	dispatchJob, err := cron.NewNotificationDispatchJob(cron.NotificationDispatchJobParams{
		Logger:     logg,
		Dispatcher: dispatcher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch job", err)
		os.Exit(1)
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Repository:    notificationsRepo,
		RetentionDays: cfg.Notifications.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName, envName(cfg.App.Env)), cfg.Notifications.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(dispatchJob, cleanupJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Notifications.PollInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"serviceKind":   cfg.Service.Kind,
		"instance":      instance.ID(),
		"poll_interval": cfg.Notifications.PollInterval.String(),
		"remote_source": cfg.Backend.URL != "",
	})

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Notifications.MetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting notification worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notification worker shutting down gracefully")
}

// changeSource reads changes from the order backend over HTTP when a URL is
// configured and from the local database otherwise.
func changeSource(cfg *config.Config, dbClient *db.Client) (notifications.ChangeSource, error) {
	if cfg.Backend.URL == "" {
		return orders.NewService(orders.ServiceParams{
			Repo:  orders.NewRepository(dbClient.DB()),
			Tx:    dbClient,
			Rules: cfg.Orders,
		})
	}
	serviceUser, err := uuid.Parse(cfg.Backend.ServiceUserID)
	if err != nil {
		return nil, fmt.Errorf("%s must be a uuid when %s is set: %w", config.EnvBackendServiceUserID, config.EnvBackendURL, err)
	}
	return orderbackend.NewClient(
		cfg.Backend.URL,
		orderbackend.ServiceToken(cfg.JWT, serviceUser),
		orderbackend.WithTimeout(cfg.Backend.Timeout),
	)
}

func envName(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
