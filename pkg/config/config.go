package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Dedupe       DedupeConfig
	Retry        RetryConfig
	Dispatch     DispatchConfig
	Scoring      ScoringConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stats        StatsConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
	Meta         MetaConnectorConfig
	TikTok       TikTokConnectorConfig
	Google       GoogleConnectorConfig
	Eventing     EventingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STRATUM_APP_ENV" required:"true"`
	Port         string `envconfig:"STRATUM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STRATUM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STRATUM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STRATUM_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STRATUM_DB_DSN"`
	Driver string `envconfig:"STRATUM_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STRATUM_DB_HOST"`
	LegacyPort     int    `envconfig:"STRATUM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STRATUM_DB_USER"`
	LegacyPassword string `envconfig:"STRATUM_DB_PASSWORD"`
	LegacyName     string `envconfig:"STRATUM_DB_NAME"`
	LegacySSLMode  string `envconfig:"STRATUM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STRATUM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STRATUM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STRATUM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STRATUM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STRATUM_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STRATUM_REDIS_ADDR"`
	Password     string        `envconfig:"STRATUM_REDIS_PASSWORD"`
	DB           int           `envconfig:"STRATUM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STRATUM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STRATUM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STRATUM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STRATUM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STRATUM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// DedupeConfig holds the default claim window and key strategy; tenants can
// override both per platform.
type DedupeConfig struct {
	TTL            time.Duration `envconfig:"STRATUM_DEDUPE_TTL" default:"168h"`
	Strategy       string        `envconfig:"STRATUM_DEDUPE_STRATEGY" default:"event_id"`
	Backend        string        `envconfig:"STRATUM_DEDUPE_BACKEND" default:"redis"`
	SweepBatchSize int           `envconfig:"STRATUM_DEDUPE_SWEEP_BATCH" default:"1000"`
}

type RetryConfig struct {
	MaxAttempts int           `envconfig:"STRATUM_RETRY_MAX_ATTEMPTS" default:"5"`
	BackoffBase time.Duration `envconfig:"STRATUM_RETRY_BACKOFF_BASE" default:"2s"`
	BackoffCap  time.Duration `envconfig:"STRATUM_RETRY_BACKOFF_CAP" default:"5m"`
}

type DispatchConfig struct {
	Mode             string        `envconfig:"STRATUM_DISPATCH_MODE" default:"inline"`
	ConnectorTimeout time.Duration `envconfig:"STRATUM_DISPATCH_CONNECTOR_TIMEOUT" default:"10s"`
	DLQReplayBatch   int           `envconfig:"STRATUM_DISPATCH_DLQ_REPLAY_BATCH" default:"25"`
}

type ScoringConfig struct {
	WeightOverridesJSON string `envconfig:"STRATUM_SCORE_WEIGHT_OVERRIDES"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STRATUM_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STRATUM_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STRATUM_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ConversionsTopic        string `envconfig:"STRATUM_PUBSUB_CONVERSIONS_TOPIC" default:"stratum-conversion-events"`
	ConversionsSubscription string `envconfig:"STRATUM_PUBSUB_CONVERSIONS_SUBSCRIPTION"`
}

type StatsConfig struct {
	RollupLookbackDays int `envconfig:"STRATUM_STATS_ROLLUP_LOOKBACK_DAYS" default:"1"`
}

type RateLimitConfig struct {
	SubmitWindow      time.Duration `envconfig:"STRATUM_RATELIMIT_SUBMIT_WINDOW" default:"1m"`
	SubmitIPLimit     int           `envconfig:"STRATUM_RATELIMIT_SUBMIT_IP_LIMIT" default:"600"`
	SubmitTenantLimit int           `envconfig:"STRATUM_RATELIMIT_SUBMIT_TENANT_LIMIT" default:"1200"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"STRATUM_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"STRATUM_CRON_LOCK_TTL" default:"55m"`
}

type MetaConnectorConfig struct {
	BaseURL     string `envconfig:"STRATUM_META_BASE_URL" default:"https://graph.facebook.com"`
	APIVersion  string `envconfig:"STRATUM_META_API_VERSION" default:"v21.0"`
	PixelID     string `envconfig:"STRATUM_META_PIXEL_ID"`
	AccessToken string `envconfig:"STRATUM_META_ACCESS_TOKEN"`
}

type TikTokConnectorConfig struct {
	BaseURL     string `envconfig:"STRATUM_TIKTOK_BASE_URL" default:"https://business-api.tiktok.com"`
	PixelCode   string `envconfig:"STRATUM_TIKTOK_PIXEL_CODE"`
	AccessToken string `envconfig:"STRATUM_TIKTOK_ACCESS_TOKEN"`
}

type GoogleConnectorConfig struct {
	BaseURL       string `envconfig:"STRATUM_GOOGLE_BASE_URL" default:"https://www.google-analytics.com"`
	MeasurementID string `envconfig:"STRATUM_GOOGLE_MEASUREMENT_ID"`
	APISecret     string `envconfig:"STRATUM_GOOGLE_API_SECRET"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STRATUM_AUTO_MIGRATE" default:"false"`
}

// EventingConfig governs consumer-side idempotency for the async dispatch path.
type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"STRATUM_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
