package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "FULFILL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "FULFILL_APP_ENV"
	EnvPort     = "FULFILL_APP_PORT"
	EnvDBDSN    = "FULFILL_DB_DSN"
	EnvDBHost   = "FULFILL_DB_HOST"
	EnvDBUser   = "FULFILL_DB_USER"
	EnvDBName   = "FULFILL_DB_NAME"
	EnvRedisURL = "FULFILL_REDIS_URL"

	EnvJWTSecret  = "FULFILL_JWT_SECRET"
	EnvJWTIssuer  = "FULFILL_JWT_ISSUER"
	EnvJWTExpMins = "FULFILL_JWT_EXPIRATION_MINUTES"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
