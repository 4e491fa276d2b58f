package config

// EnvPrefix is the envconfig prefix; individual fields carry explicit
// STRATUM_* names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "STRATUM_APP_ENV"
	EnvPort     = "STRATUM_APP_PORT"
	EnvDBDSN    = "STRATUM_DB_DSN"
	EnvDBHost   = "STRATUM_DB_HOST"
	EnvDBUser   = "STRATUM_DB_USER"
	EnvDBName   = "STRATUM_DB_NAME"
	EnvRedisURL = "STRATUM_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
