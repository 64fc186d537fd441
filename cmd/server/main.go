package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eid-auth-service/internal/app"
	"eid-auth-service/internal/config"
	"eid-auth-service/internal/db"
	"eid-auth-service/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "eid-auth-service",
		Short:         "BankID sign-in through the Idura broker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())

	// bare invocation serves
	root.RunE = serveCmd().RunE

	if err := root.Execute(); err != nil {
		logger.Fatal("command failed", map[string]any{
			"error": err,
		})
	}
}

func setup() (config.Config, error) {
	cfg := config.Load()
	logger.Init(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})
	return cfg, cfg.Validate()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(
				context.Background(),
				os.Interrupt,
				syscall.SIGTERM,
			)
			defer stop()

			application, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}

			go func() {
				if err := application.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("http server failed", map[string]any{
						"error": err,
					})
				}
			}()

			logger.Info("eid-auth-service started", map[string]any{
				"port": cfg.AppPort,
			})

			<-ctx.Done()

			logger.Info("shutdown signal received", nil)

			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				10*time.Second,
			)
			defer cancel()

			if err := application.Shutdown(shutdownCtx); err != nil {
				return err
			}

			logger.Info("eid-auth-service stopped cleanly", nil)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the account tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})
			defer func() { _ = logger.Sync() }()

			if cfg.DatabaseDSN == "" {
				return errors.New("DATABASE_DSN is required")
			}

			conn, err := db.Open(cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := conn.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("migration applied", nil)
			return nil
		},
	}
}
