package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	jwttoken "trainingcenter/internal/jwt_token"
	"trainingcenter/internal/platform/config"
	"trainingcenter/internal/platform/database"
	"trainingcenter/internal/platform/httpserver"
	"trainingcenter/internal/platform/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the certificate and directory schema to the configured database",
	RunE:  runMigrate,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a staff token for local development",
	Long: `Signs a staff access token with TC_ADMIN_JWT_SECRET. Production tokens
are issued by the portal's sign-in service; use this only against local servers.`,
	RunE: runToken,
}

var (
	tokenStaffID string
	tokenRole    string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenStaffID, "staff-id", "local-admin", "Staff member the token is issued to")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "admin", "Staff role claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := a.close(shutdownCtx); err != nil {
			log.Error("shutdown incomplete", "error", err)
		}
	}()

	log.Info("starting trainingcenter",
		"addr", cfg.Addr,
		"store", cfg.Store.Driver,
		"redis", cfg.Redis.URL != "",
		"kafka", len(cfg.Kafka.Brokers) > 0,
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, a.router), cfg.ShutdownTimeout, log)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if cfg.Store.Driver == config.StoreMemory {
		return fmt.Errorf("migrate needs TC_STORE_DRIVER=postgres or sqlite")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, dialect, err := openDatabase(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(cmd.Context(), db, schema(dialect)...); err != nil {
		return err
	}
	log.Info("schema applied", "driver", dialect.Driver())
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	token, err := jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer).
		GenerateAccessToken(tokenStaffID, tokenRole, tokenTTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
