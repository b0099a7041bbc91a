package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Orders        OrdersConfig
	Notifications NotificationsConfig
	Backend       BackendConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRADEFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"TRADEFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TRADEFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRADEFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRADEFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEFLOW_DB_DSN"`
	Driver string `envconfig:"TRADEFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADEFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADEFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADEFLOW_DB_USER"`
	LegacyPassword string `envconfig:"TRADEFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADEFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADEFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"TRADEFLOW_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADEFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"TRADEFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRADEFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRADEFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRADEFLOW_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TokenTTL returns the configured access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TRADEFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TRADEFLOW_AUTO_MIGRATE" default:"false"`
}

// OrdersConfig carries the order intake rules and the marketplace policy.
type OrdersConfig struct {
	MinAddressLength int  `envconfig:"TRADEFLOW_ORDERS_MIN_ADDRESS_LENGTH" default:"10"`
	PhoneDigits      int  `envconfig:"TRADEFLOW_ORDERS_PHONE_DIGITS" default:"10"`
	OpenMarketplace  bool `envconfig:"TRADEFLOW_ORDERS_OPEN_MARKETPLACE" default:"true"`

	// OwnerScopedIncoming hides orders claimed by other manufacturers.
	OwnerScopedIncoming bool `envconfig:"TRADEFLOW_ORDERS_OWNER_SCOPED_INCOMING" default:"false"`
}

func (o OrdersConfig) validate() error {
	if o.MinAddressLength <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersMinAddressLength)
	}
	if o.PhoneDigits <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersPhoneDigits)
	}
	return nil
}

type NotificationsConfig struct {
	PollInterval  time.Duration `envconfig:"TRADEFLOW_NOTIFICATIONS_POLL_INTERVAL" default:"30s"`
	LockTTL       time.Duration `envconfig:"TRADEFLOW_NOTIFICATIONS_LOCK_TTL" default:"1m"`
	Channel       string        `envconfig:"TRADEFLOW_NOTIFICATIONS_CHANNEL" default:"notifications"`
	MetricsPort   string        `envconfig:"TRADEFLOW_NOTIFICATIONS_METRICS_PORT" default:"9091"`
	RetentionDays int           `envconfig:"TRADEFLOW_NOTIFICATIONS_RETENTION_DAYS" default:"30"`
}

// BackendConfig points the notification worker at a remote order backend.
// When URL is empty the worker reads orders straight from the database.
type BackendConfig struct {
	URL           string        `envconfig:"TRADEFLOW_BACKEND_URL"`
	Timeout       time.Duration `envconfig:"TRADEFLOW_BACKEND_TIMEOUT" default:"10s"`
	ServiceUserID string        `envconfig:"TRADEFLOW_BACKEND_SERVICE_USER_ID"`
}

// RateLimitConfig bounds authenticated writes. A zero limit disables that scope.
type RateLimitConfig struct {
	Window      time.Duration `envconfig:"TRADEFLOW_RATE_LIMIT_WINDOW" default:"1m"`
	CallerLimit int           `envconfig:"TRADEFLOW_RATE_LIMIT_CALLER" default:"60"`
	IPLimit     int           `envconfig:"TRADEFLOW_RATE_LIMIT_IP" default:"300"`
}

type CORSConfig struct {
	AllowedOrigins []string      `envconfig:"TRADEFLOW_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MaxAge         time.Duration `envconfig:"TRADEFLOW_CORS_MAX_AGE" default:"5m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
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
