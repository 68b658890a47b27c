// Package bootstrap opens the stores and caches selected by config. Both
// the server and the admin CLI start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"idealtransport/cache"
	"idealtransport/config"
	"idealtransport/db"
	"idealtransport/db/mongo"
	"idealtransport/db/postgres"
	"idealtransport/handlers"
	"idealtransport/repository"
	"idealtransport/repository/memory"
)

type Stores struct {
	BOLs         repository.BOLRepository
	Transactions repository.TransactionRepository
	Users        repository.UserRepository
	Expenses     repository.ExpenseRepository

	// Checks are pinged by the health endpoint.
	Checks map[string]handlers.Pinger

	closers []func() error
}

// OpenStores connects every store named by cfg. On error anything already
// opened is closed again.
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (s *Stores, err error) {
	s = &Stores{Checks: map[string]handlers.Pinger{}}
	defer func() {
		if err != nil {
			s.Close()
			s = nil
		}
	}()

	switch cfg.DBType {
	case db.Postgres:
		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.PostgresURL, logger); err != nil {
				return s, err
			}
		}
		pg := postgres.NewPostgresDB(cfg.PostgresURL, cfg.PGMaxOpenConns, cfg.PGStatementTimeout)
		if err := s.connect(ctx, "postgres", pg); err != nil {
			return s, err
		}

		s.BOLs = repository.NewPostgresBOLRepo(pg.Conn)
		s.Transactions = repository.NewPostgresTransactionRepo(pg.Conn)
		s.Users = repository.NewPostgresUserRepo(pg.Conn)
		s.Expenses = repository.NewPostgresExpenseRepo(pg.Conn)
		logger.Info("connected to postgres", slog.Int("max_open_conns", pg.MaxOpenConns))

	case db.Memory:
		store := memory.NewStore()
		s.Checks["memory"] = store
		s.BOLs, s.Transactions, s.Users, s.Expenses = store, store, store, store
		logger.Warn("using in-memory store; data is lost on restart")

	default:
		return s, fmt.Errorf("bootstrap: DB_TYPE %q not supported", cfg.DBType)
	}

	if cfg.ExpensesDBType == db.Mongo {
		mg := mongo.NewMongoDB(cfg.MongoURL, cfg.MongoDatabase)
		if err := s.connect(ctx, "mongo", mg); err != nil {
			return s, err
		}
		s.Expenses = repository.NewMongoExpenseRepo(mg.DB())
		logger.Info("daily expenses stored in mongo", slog.String("database", cfg.MongoDatabase))
	}
	return s, nil
}

// connect opens conn and registers it for health checks and Close.
func (s *Stores) connect(ctx context.Context, name string, conn db.DB) error {
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	s.closers = append(s.closers, conn.Disconnect)
	s.Checks[name] = conn
	return nil
}

// Close releases connections in reverse order of opening.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Caches are the payment aggregate cache and the bearer token store.
type Caches struct {
	Payments cache.Cache
	Tokens   cache.Cache

	close func() error
}

const (
	redisPrefix     = "idealtransport:"
	paymentEntries  = 4096
	tokenEntries    = 100_000
	pingCacheWindow = 5 * time.Second
)

// OpenCaches builds the caches for cfg.CacheBackend. Tokens always need a
// real store, so CACHE_BACKEND=none only disables the payment cache, as
// does PAYMENT_CACHE_TTL=0.
func OpenCaches(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Caches, error) {
	c, err := openCaches(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.PaymentCacheTTL == 0 {
		c.Payments = cache.Noop{}
	}
	return c, nil
}

func openCaches(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Caches, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		ctx, cancel := context.WithTimeout(ctx, pingCacheWindow)
		defer cancel()
		client, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		r := cache.NewRedis(client, redisPrefix)
		logger.Info("connected to redis", slog.String("addr", cfg.RedisAddr))
		return &Caches{Payments: r, Tokens: r, close: client.Close}, nil

	case config.CacheNone:
		return &Caches{
			Payments: cache.Noop{},
			Tokens:   cache.NewMemory(tokenEntries, cfg.TokenTTL),
			close:    func() error { return nil },
		}, nil

	default:
		return &Caches{
			Payments: cache.NewMemory(paymentEntries, cfg.PaymentCacheTTL),
			Tokens:   cache.NewMemory(tokenEntries, cfg.TokenTTL),
			close:    func() error { return nil },
		}, nil
	}
}

func (c *Caches) Close() error { return c.close() }
