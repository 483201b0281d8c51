package config

// EnvPrefix is the envconfig prefix for every setting.
const EnvPrefix = "ORDERFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "ORDERFLOW_APP_ENV"
	EnvPort      = "ORDERFLOW_APP_PORT"
	EnvRedisURL  = "ORDERFLOW_REDIS_URL"
	EnvJWTSecret = "ORDERFLOW_JWT_SECRET"
	EnvJWTIssuer = "ORDERFLOW_JWT_ISSUER"

	EnvDBDSN  = "ORDERFLOW_DB_DSN"
	EnvDBHost = "ORDERFLOW_DB_HOST"
	EnvDBUser = "ORDERFLOW_DB_USER"
	EnvDBName = "ORDERFLOW_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
