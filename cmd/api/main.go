package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/controllers"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/routes"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/connector"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/deadletter"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dedupe"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dispatch"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/ingest"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/stats"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/tenants"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/config"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/metrics"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/migrate"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/pubsub"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/redis"
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

	var pubsubClient *pubsub.Client
	if cfg.Dispatch.Mode == ingest.ModeQueue {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer pubsubClient.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deliveryMetrics := metrics.NewDeliveryMetrics(registry)

	defaults, err := tenants.DefaultsFromConfig(cfg)
	if err != nil {
		logg.Error(context.Background(), "invalid tenant defaults", err)
		os.Exit(1)
	}
	resolver, err := tenants.NewResolver(tenants.NewRepository(dbClient.DB()), defaults)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings resolver", err)
		os.Exit(1)
	}

	dedupeStore, err := newDedupeStore(cfg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create dedupe store", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.Dispatch.ConnectorTimeout}
	connectors, err := newConnectorRegistry(cfg, httpClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create connector registry", err)
		os.Exit(1)
	}

	dlRepo := deadletter.NewRepository(dbClient.DB())
	dlQueue, err := deadletter.NewQueue(dlRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dead letter queue", err)
		os.Exit(1)
	}

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
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	dlService, err := deadletter.NewService(deadletter.ServiceParams{
		Queue:       dlQueue,
		Redeliverer: dispatcher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dead letter service", err)
		os.Exit(1)
	}

	statsService, err := stats.NewService(stats.ServiceParams{
		Store:  stats.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stats service", err)
		os.Exit(1)
	}

	ingestParams := ingest.ServiceParams{
		Dispatcher: dispatcher,
		Resolver:   resolver,
		Logger:     logg,
		Mode:       cfg.Dispatch.Mode,
	}
	if pubsubClient != nil {
		ingestParams.Publisher = ingest.NewEventPublisher(pubsubClient.ConversionsPublisher())
	}
	ingestService, err := ingest.NewService(ingestParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	var pubsubPinger controllers.Pinger
	if pubsubClient != nil {
		pubsubPinger = pubsubClient
	}
	handler := routes.NewRouter(routes.RouterParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		PubSub:     pubsubPinger,
		Ingest:     ingestService,
		DeadLetter: dlService,
		Stats:      statsService,
		Registry:   registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"dispatch_mode": cfg.Dispatch.Mode,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
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
