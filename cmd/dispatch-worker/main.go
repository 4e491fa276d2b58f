package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/connector"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/deadletter"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dedupe"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dispatch"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dispatch/consumer"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/tenants"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/config"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/instance"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/metrics"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/migrate"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/pubsub"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "dispatch-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "dispatch-worker"

	logg = logger.New(logger.Options{
		ServiceName: "dispatch-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	deliveryMetrics := metrics.NewDeliveryMetrics(prometheus.DefaultRegisterer)

	defaults, err := tenants.DefaultsFromConfig(cfg)
	requireResource(ctx, logg, "tenant defaults", err)
	resolver, err := tenants.NewResolver(tenants.NewRepository(dbClient.DB()), defaults)
	requireResource(ctx, logg, "settings resolver", err)

	dedupeStore, err := newDedupeStore(cfg, dbClient, redisClient)
	requireResource(ctx, logg, "dedupe store", err)

	httpClient := &http.Client{Timeout: cfg.Dispatch.ConnectorTimeout}
	connectors, err := newConnectorRegistry(cfg, httpClient)
	requireResource(ctx, logg, "connector registry", err)

	dlQueue, err := deadletter.NewQueue(deadletter.NewRepository(dbClient.DB()), logg)
	requireResource(ctx, logg, "dead letter queue", err)

	dispatcher, err := dispatch.NewService(dispatch.ServiceParams{
		Logs:             dispatch.NewRepository(dbClient.DB()),
		Dedupe:           dedupeStore,
		Connectors:       connectors,
		DeadLetters:      dlQueue,
		Resolver:         resolver,
		Metrics:          deliveryMetrics,
		Logger:           logg,
		ConnectorTimeout: cfg.Dispatch.ConnectorTimeout,
	})
	requireResource(ctx, logg, "dispatcher", err)

	eventConsumer, err := consumer.NewConsumer(
		dispatcher,
		redisClient,
		pubsubClient.ConversionsSubscription(),
		logg,
		cfg.Eventing.IdempotencyTTL,
	)
	requireResource(ctx, logg, "conversion consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "dispatch worker ready")

	if err := eventConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "dispatch worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "dispatch worker shutting down gracefully")
}

func newDedupeStore(cfg *config.Config, dbClient *db.Client, redisClient *redis.Client) (dedupe.Store, error) {
	if cfg.Dedupe.Backend == "postgres" {
		return dedupe.NewPostgresStore(dbClient.DB())
	}
	return dedupe.NewRedisStore(redisClient)
}

func newConnectorRegistry(cfg *config.Config, client *http.Client) (*connector.Registry, error) {
	meta, err := connector.NewMetaConnector(cfg.Meta, client)
	if err != nil {
		return nil, err
	}
	tiktok, err := connector.NewTikTokConnector(cfg.TikTok, client)
	if err != nil {
		return nil, err
	}
	google, err := connector.NewGoogleConnector(cfg.Google, client)
	if err != nil {
		return nil, err
	}
	return connector.NewRegistry(meta, tiktok, google)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
