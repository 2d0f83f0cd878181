package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/campus-service/internal/config"
	"github.com/spec-kit/campus-service/internal/observability"
	"github.com/spec-kit/campus-service/internal/persistence"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQL migrations and exit",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		return errors.New("POSTGRES_DSN is required to migrate")
	}

	dir := cfg.Postgres.MigrationsDir
	if migrationsDir != "" {
		dir = migrationsDir
	}
	return persistence.RunMigrations(ctx, pg.PoolHandle(), dir, logger)
}
