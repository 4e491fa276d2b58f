package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/connector"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/cron"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/deadletter"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dedupe"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/dispatch"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/stats"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/tenants"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/config"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/metrics"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/migrate"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	deliveryMetrics := metrics.NewDeliveryMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

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

	httpClient := &http.Client{Timeout: cfg.Dispatch.ConnectorTimeout}
	meta, err := connector.NewMetaConnector(cfg.Meta, httpClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create meta connector", err)
		os.Exit(1)
	}
	tiktok, err := connector.NewTikTokConnector(cfg.TikTok, httpClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create tiktok connector", err)
		os.Exit(1)
	}
	google, err := connector.NewGoogleConnector(cfg.Google, httpClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create google connector", err)
		os.Exit(1)
	}
	connectors, err := connector.NewRegistry(meta, tiktok, google)
	if err != nil {
		logg.Error(context.Background(), "failed to create connector registry", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()

	// The DLQ replay job redelivers through the real dispatcher, so the whole
	// delivery chain is wired here as well.
	var dedupeStore dedupe.Store
	if cfg.Dedupe.Backend == "postgres" {
		pgStore, err := dedupe.NewPostgresStore(dbClient.DB())
		if err != nil {
			logg.Error(context.Background(), "failed to create dedupe store", err)
			os.Exit(1)
		}
		dedupeStore = pgStore

		sweepJob, err := cron.NewDedupeSweepJob(cron.DedupeSweepJobParams{
			Logger:    logg,
			Sweeper:   pgStore,
			BatchSize: cfg.Dedupe.SweepBatchSize,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create dedupe sweep job", err)
			os.Exit(1)
		}
		registry.Register(sweepJob)
	} else {
		dedupeStore, err = dedupe.NewRedisStore(redisClient)
		if err != nil {
			logg.Error(context.Background(), "failed to create dedupe store", err)
			os.Exit(1)
		}
	}

	dlQueue, err := deadletter.NewQueue(deadletter.NewRepository(dbClient.DB()), logg)
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

	replayJob, err := cron.NewDLQReplayJob(cron.DLQReplayJobParams{
		Logger:    logg,
		Replayer:  dlService,
		BatchSize: cfg.Dispatch.DLQReplayBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dlq replay job", err)
		os.Exit(1)
	}
	registry.Register(replayJob)

	statsService, err := stats.NewService(stats.ServiceParams{
		Store:  stats.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stats service", err)
		os.Exit(1)
	}
	rollupJob, err := cron.NewStatsRollupJob(cron.StatsRollupJobParams{
		Logger:       logg,
		Stats:        statsService,
		LookbackDays: cfg.Stats.RollupLookbackDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stats rollup job", err)
		os.Exit(1)
	}
	registry.Register(rollupJob)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+envName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func envName(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
