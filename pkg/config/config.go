package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Expiry  ExpiryConfig
	CORS    CORSConfig
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
	Env          string `envconfig:"FULFILL_APP_ENV" required:"true"`
	Port         string `envconfig:"FULFILL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FULFILL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FULFILL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FULFILL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FULFILL_DB_DSN"`
	Driver string `envconfig:"FULFILL_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FULFILL_DB_HOST"`
	Port     int    `envconfig:"FULFILL_DB_PORT" default:"5432"`
	User     string `envconfig:"FULFILL_DB_USER"`
	Password string `envconfig:"FULFILL_DB_PASSWORD"`
	Name     string `envconfig:"FULFILL_DB_NAME"`
	SSLMode  string `envconfig:"FULFILL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FULFILL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FULFILL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FULFILL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FULFILL_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"FULFILL_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FULFILL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FULFILL_REDIS_ADDR"`
	Password     string        `envconfig:"FULFILL_REDIS_PASSWORD"`
	DB           int           `envconfig:"FULFILL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FULFILL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FULFILL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FULFILL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FULFILL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FULFILL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FULFILL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FULFILL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FULFILL_JWT_EXPIRATION_MINUTES" required:"true"`
}

// ExpiryConfig drives the background sweep cadence. The actual assignment
// timeout lives in the auto_assignment_settings row, not the environment.
type ExpiryConfig struct {
	SweepInterval time.Duration `envconfig:"FULFILL_EXPIRY_SWEEP_INTERVAL" default:"1m"`
	BatchSize     int           `envconfig:"FULFILL_EXPIRY_BATCH_SIZE" default:"200"`
	MetricsPort   string        `envconfig:"FULFILL_EXPIRY_METRICS_PORT" default:"9091"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FULFILL_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
