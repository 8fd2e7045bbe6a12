package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Stewz00/go-backoffice-service/internal/app"
	"github.com/Stewz00/go-backoffice-service/internal/config"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "backoffice-cli",
		Short:         "Maintenance commands for the backoffice service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(setRoleCmd())
	rootCmd.AddCommand(testEmailCmd())
	rootCmd.AddCommand(syncCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Env), nil
}

// withApp builds the application, runs fn and releases it.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer a.Stop(context.Background())

	return fn(a)
}
