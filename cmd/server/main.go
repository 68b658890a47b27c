package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idealtransport/bootstrap"
	"idealtransport/config"
	"idealtransport/handlers"
	"idealtransport/metrics"
	"idealtransport/routes"
	"idealtransport/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(slog.Default())
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg *config.Config, logger *slog.Logger) error {
	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("close stores", slog.Any("error", err))
		}
	}()

	caches, err := bootstrap.OpenCaches(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := caches.Close(); err != nil {
			logger.Warn("close cache", slog.Any("error", err))
		}
	}()

	var stats *metrics.Metrics
	if cfg.MetricsEnabled {
		stats = metrics.New()
	}

	payments := services.NewPaymentEngine(stores.BOLs, stores.Transactions, caches.Payments, cfg.PaymentCacheTTL, logger).
		WithMetrics(stats)
	auth := services.NewAuthService(stores.Users, caches.Tokens, cfg.TokenTTL, logger)
	bols := services.NewBOLService(stores.BOLs, payments, logger)
	ledger := services.NewLedgerService(stores.Transactions, payments, logger)

	router := routes.NewRouter(routes.Options{
		RequestTimeout:     cfg.AppRequestTimeout,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		BOLRequireAuth:     cfg.BOLRequireAuth,
		Production:         cfg.IsProduction(),
		Metrics:            stats,
	}, routes.Handlers{
		Auth:         &handlers.AuthHandler{Service: auth, Logger: logger},
		Users:        &handlers.UserHandler{Service: services.NewUserService(stores.Users, logger), Logger: logger},
		BOL:          &handlers.BOLHandler{Service: bols, Logger: logger},
		Transactions: &handlers.TransactionHandler{Ledger: ledger, BOLs: bols, Logger: logger},
		Expenses:     &handlers.ExpenseHandler{Service: services.NewExpenseService(stores.Expenses), Logger: logger},
		Health:       &handlers.HealthHandler{Stores: stores.Checks, Logger: logger},
	}, auth, logger)

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("env", cfg.AppEnv),
			slog.String("db_type", string(cfg.DBType)),
			slog.String("cache_backend", cfg.CacheBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
