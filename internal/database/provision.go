package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// EnsureDatabaseExists connects to the maintenance database and creates
// cfg.Database when it is missing. Used before migrating a fresh environment.
func EnsureDatabaseExists(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	maintenance := *cfg
	maintenance.Database = "postgres"

	conn, err := pgx.Connect(ctx, maintenance.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.Database).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		logger.Info("Database already exists", zap.String("database", cfg.Database))
		return nil
	}

	// Identifiers cannot be bound as parameters
	if err := validateDatabaseName(cfg.Database); err != nil {
		return fmt.Errorf("invalid database name: %w", err)
	}

	createSQL := fmt.Sprintf("CREATE DATABASE %s OWNER %s",
		pgx.Identifier{cfg.Database}.Sanitize(), pgx.Identifier{cfg.User}.Sanitize())
	if _, err := conn.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.Database, err)
	}

	logger.Info("Created database", zap.String("database", cfg.Database))
	return nil
}

// validateDatabaseName allows a letter or underscore followed by letters,
// digits and underscores
func validateDatabaseName(name string) error {
	if name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if !isIdentStart(rune(name[0])) {
		return fmt.Errorf("database name must start with a letter or underscore")
	}
	for _, ch := range name {
		if !isIdentStart(ch) && (ch < '0' || ch > '9') {
			return fmt.Errorf("database name can only contain letters, numbers, and underscores")
		}
	}
	return nil
}

func isIdentStart(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}
