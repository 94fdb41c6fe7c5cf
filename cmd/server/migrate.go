package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikelady/socialconnect/internal/config"
	"github.com/mikelady/socialconnect/internal/database"
	"github.com/mikelady/socialconnect/internal/observability"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	RunE:  runMigrateDown,
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

func migrationTarget(cmd *cobra.Command) (*database.Config, *zap.Logger, error) {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, nil, err
	}
	dbCfg, err := resolveDatabaseConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return dbCfg, logger, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	dbCfg, logger, err := migrationTarget(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := database.EnsureDatabaseExists(cmd.Context(), dbCfg, logger); err != nil {
		return fmt.Errorf("ensure database: %w", err)
	}
	if err := database.RunMigrations(dbCfg); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("migrations completed", zap.String("database", dbCfg.Database))
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	steps, err := cmd.Flags().GetInt("steps")
	if err != nil {
		return err
	}

	dbCfg, logger, err := migrationTarget(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := database.RollbackMigrations(dbCfg, steps); err != nil {
		return fmt.Errorf("roll back migrations: %w", err)
	}

	logger.Info("migrations rolled back", zap.String("database", dbCfg.Database), zap.Int("steps", steps))
	return nil
}
