package config

const (
	EnvPrefix = "TRADEFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:tradeflow.db?cache=shared"
)

const (
	EnvAppEnv      = "TRADEFLOW_APP_ENV"
	EnvPort        = "TRADEFLOW_APP_PORT"
	EnvLogLevel    = "TRADEFLOW_LOG_LEVEL"
	EnvServiceKind = "TRADEFLOW_SERVICE_KIND"

	EnvDBDSN  = "TRADEFLOW_DB_DSN"
	EnvDBHost = "TRADEFLOW_DB_HOST"
	EnvDBPort = "TRADEFLOW_DB_PORT"
	EnvDBUser = "TRADEFLOW_DB_USER"
	EnvDBPass = "TRADEFLOW_DB_PASSWORD"
	EnvDBName = "TRADEFLOW_DB_NAME"

	EnvRedisURL = "TRADEFLOW_REDIS_URL"

	EnvJWTSecret  = "TRADEFLOW_JWT_SECRET"
	EnvJWTIssuer  = "TRADEFLOW_JWT_ISSUER"
	EnvJWTExpMins = "TRADEFLOW_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "TRADEFLOW_USE_SQLITE"
	EnvAutoMigrate = "TRADEFLOW_AUTO_MIGRATE"

	EnvOrdersMinAddressLength = "TRADEFLOW_ORDERS_MIN_ADDRESS_LENGTH"
	EnvOrdersPhoneDigits      = "TRADEFLOW_ORDERS_PHONE_DIGITS"
	EnvOrdersOpenMarketplace  = "TRADEFLOW_ORDERS_OPEN_MARKETPLACE"
	EnvOrdersOwnerScoped      = "TRADEFLOW_ORDERS_OWNER_SCOPED_INCOMING"

	EnvNotificationsPollInterval = "TRADEFLOW_NOTIFICATIONS_POLL_INTERVAL"
	EnvBackendURL                = "TRADEFLOW_BACKEND_URL"
	EnvBackendServiceUserID      = "TRADEFLOW_BACKEND_SERVICE_USER_ID"

	EnvRateLimitCaller = "TRADEFLOW_RATE_LIMIT_CALLER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
