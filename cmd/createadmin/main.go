// Command createadmin creates the first admin account, or promotes and
// reactivates an existing one. It reads the same environment as the server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"idealtransport/bootstrap"
	"idealtransport/config"
	"idealtransport/services"
)

func main() {
	email := pflag.StringP("email", "e", "admin@idealtransport.com", "admin email address")
	password := pflag.StringP("password", "p", "", "admin password (falls back to ADMIN_PASSWORD)")
	fullName := pflag.StringP("name", "n", "Admin User", "admin full name")
	pflag.Parse()

	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}

	cfg, err := config.Load(slog.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, cfg, logger, *email, *password, *fullName); err != nil {
		logger.Error("create admin", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, email, password, fullName string) error {
	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	users := services.NewUserService(stores.Users, logger)
	u, created, err := users.EnsureAdmin(ctx, email, password, fullName)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Admin user created: %s (id %d)\n", u.Email, u.ID)
	} else {
		fmt.Printf("Existing user %s promoted to active admin (id %d)\n", u.Email, u.ID)
	}
	return nil
}
