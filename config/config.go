package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"idealtransport/db"
)

type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	Port              string        `envconfig:"PORT"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DBType             db.DBType     `envconfig:"DB_TYPE" default:"postgres"`
	PostgresURL        string        `envconfig:"POSTGRES_URL"`
	PGMaxOpenConns     int           `envconfig:"PG_MAX_OPEN_CONNS" default:"25"`
	PGStatementTimeout time.Duration `envconfig:"PG_STATEMENT_TIMEOUT" default:"15s"`
	RunMigrations      bool          `envconfig:"RUN_MIGRATIONS" default:"true"`

	ExpensesDBType db.DBType `envconfig:"EXPENSES_DB_TYPE"`
	MongoURL       string    `envconfig:"MONGO_URL"`
	MongoDatabase  string    `envconfig:"MONGO_DATABASE" default:"idealtransport"`

	CacheBackend    string        `envconfig:"CACHE_BACKEND" default:"memory"`
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	PaymentCacheTTL time.Duration `envconfig:"PAYMENT_CACHE_TTL" default:"2m"`
	TokenTTL        time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	BOLRequireAuth     bool     `envconfig:"BOL_REQUIRE_AUTH" default:"false"`
	CORSOrigins        []string `envconfig:"CORS_ORIGINS" default:"*"`
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`
	MetricsEnabled     bool     `envconfig:"METRICS_ENABLED" default:"true"`
}

const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// Load reads an optional .env file and then the process environment.
func Load(logger *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using process environment")
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Port != "" {
		cfg.AppAddr = ":" + strings.TrimPrefix(cfg.Port, ":")
	}
	if cfg.ExpensesDBType == "" {
		cfg.ExpensesDBType = cfg.DBType
	}
	cfg.CacheBackend = strings.ToLower(cfg.CacheBackend)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.DBType {
	case db.Postgres:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required when DB_TYPE=postgres"))
		}
	case db.Memory:
	default:
		errs = append(errs, fmt.Errorf("DB_TYPE %q not supported (postgres, memory)", c.DBType))
	}

	switch c.ExpensesDBType {
	case c.DBType:
	case db.Mongo:
		if c.MongoURL == "" {
			errs = append(errs, errors.New("MONGO_URL is required when EXPENSES_DB_TYPE=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("EXPENSES_DB_TYPE %q not supported with DB_TYPE %s", c.ExpensesDBType, c.DBType))
	}

	switch c.CacheBackend {
	case CacheRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when CACHE_BACKEND=redis"))
		}
	case CacheMemory, CacheNone:
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND %q not supported (redis, memory, none)", c.CacheBackend))
	}

	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.PaymentCacheTTL < 0 {
		errs = append(errs, errors.New("PAYMENT_CACHE_TTL must not be negative"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
