package config

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"idealtransport/db"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_TYPE", "memory")
	t.Setenv("PORT", "")
	t.Setenv("CACHE_BACKEND", "Memory")

	cfg, err := Load(quiet)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, db.Memory, cfg.ExpensesDBType)
	require.Equal(t, CacheMemory, cfg.CacheBackend)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 2*time.Minute, cfg.PaymentCacheTTL)
	require.False(t, cfg.BOLRequireAuth)
	require.True(t, cfg.MetricsEnabled)
	require.False(t, cfg.IsProduction())
}

func TestLoadHonoursPort(t *testing.T) {
	t.Setenv("DB_TYPE", "memory")
	t.Setenv("CACHE_BACKEND", "none")
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(quiet)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.AppAddr)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			DBType:         db.Postgres,
			PostgresURL:    "postgres://localhost/ideal",
			ExpensesDBType: db.Postgres,
			CacheBackend:   CacheRedis,
			RedisAddr:      "localhost:6379",
			TokenTTL:       time.Hour,
		}
	}
	ok := base()
	require.NoError(t, ok.Validate())

	cases := map[string]func(c *Config){
		"POSTGRES_URL":      func(c *Config) { c.PostgresURL = "" },
		"DB_TYPE":           func(c *Config) { c.DBType = "sqlite" },
		"MONGO_URL":         func(c *Config) { c.ExpensesDBType = db.Mongo },
		"REDIS_ADDR":        func(c *Config) { c.RedisAddr = "" },
		"CACHE_BACKEND":     func(c *Config) { c.CacheBackend = "memcached" },
		"TOKEN_TTL":         func(c *Config) { c.TokenTTL = 0 },
		"PAYMENT_CACHE_TTL": func(c *Config) { c.PaymentCacheTTL = -time.Second },
	}
	for want, mutate := range cases {
		t.Run(want, func(t *testing.T) {
			c := base()
			mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), want)
		})
	}

	mongo := base()
	mongo.ExpensesDBType = db.Mongo
	mongo.MongoURL = "mongodb://localhost:27017"
	require.NoError(t, mongo.Validate())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", "warn")
	logger.Info("dropped")
	logger.Warn("kept", slog.String("work_order_no", "WO-1"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "kept", line["msg"])
	require.Equal(t, "WO-1", line["work_order_no"])

	require.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
}
