package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghuser/branchpos/pkg/app"
	"github.com/ghuser/branchpos/pkg/cache"
	"github.com/ghuser/branchpos/pkg/config"
	"github.com/ghuser/branchpos/pkg/database"
	"github.com/ghuser/branchpos/pkg/events"
	"github.com/ghuser/branchpos/pkg/logger"
	"github.com/ghuser/branchpos/pkg/telemetry"
	"github.com/ghuser/branchpos/pkg/workflows"
	inventorysvcs "github.com/ghuser/branchpos/services/inventory/application/services"
	inventoryflows "github.com/ghuser/branchpos/services/inventory/application/workflows"
	salessvcs "github.com/ghuser/branchpos/services/sales/application/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx := context.Background()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer pool.Close()
	log.Info("database pool connected")

	eventBus, err := events.NewEventBus(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	appConfig := &app.Application{
		Config:   cfg,
		Db:       pool,
		Logger:   log,
		EventBus: eventBus,
		Redis:    redisClient,
	}

	if cfg.TemporalEnabled {
		temporalClient, err := workflows.NewTemporalClient(ctx, cfg.TemporalHostPort, cfg.TemporalNamespace, log)
		if err != nil {
			log.Error("failed to initialize temporal client", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		defer temporalClient.Close()
		appConfig.TemporalClient = temporalClient
	}

	if err := registerSubscribers(ctx, appConfig); err != nil {
		log.Error("failed to register subscribers", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	stopTemporal, err := startTemporalWorker(ctx, appConfig)
	if err != nil {
		log.Error("failed to start temporal worker", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	stopTemporal()

	// EventBus.Close() (via defer) waits up to 30s for in-flight handlers.
	log.Info("worker stopped")
}

// registerSubscribers wires all domain event handlers.
func registerSubscribers(ctx context.Context, a *app.Application) error {
	subs := subscriptions(
		cache.NewItemCache(a.Redis),
		cache.NewJSONCache(a.Redis, salessvcs.StatsCachePrefix),
		a.Logger.With("component", "subscribers"),
	)

	topics := make([]string, 0, len(subs))
	for _, s := range subs {
		errCh, err := a.EventBus.Subscribe(ctx, s.topic, s.handler)
		if err != nil {
			return err
		}

		// Drain subscriber errors in background so the channel never blocks.
		go func(topic string) {
			for err := range errCh {
				a.Logger.ErrorContext(ctx, "subscriber error", "topic", topic, "error", err)
			}
		}(s.topic)
		topics = append(topics, s.topic)
	}

	a.Logger.Info("event subscribers registered", "topics", topics)
	return nil
}

// startTemporalWorker runs the alert-expiry worker and ensures its cron
// workflow is scheduled. It is a no-op when Temporal is disabled.
func startTemporalWorker(ctx context.Context, a *app.Application) (stop func(), err error) {
	if a.TemporalClient == nil {
		a.Logger.Info("temporal disabled, expired alerts will not be purged")
		return func() {}, nil
	}

	queue := a.Config.TemporalTaskQueue
	w := a.TemporalClient.NewWorker(queue)
	inventoryflows.Register(w, &inventoryflows.Activities{Alerts: inventorysvcs.New(a).Alerts})
	if err := w.Start(); err != nil {
		return nil, err
	}

	if err := inventoryflows.StartAlertExpiry(ctx, a.TemporalClient.Client, queue); err != nil {
		// Already scheduled by another worker instance.
		a.Logger.Warn("alert expiry schedule not started", "error", err)
	}
	a.Logger.Info("temporal worker started", "task_queue", queue)
	return w.Stop, nil
}
