//go:build docker

package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dhui/dktest"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikelady/socialconnect/internal/services"
)

const postgresImage = "postgres:16-alpine"

var postgresOptions = dktest.Options{
	PortRequired: true,
	ReadyTimeout: 2 * time.Minute,
	Env: map[string]string{
		"POSTGRES_USER":     "postgres",
		"POSTGRES_PASSWORD": "postgres",
		"POSTGRES_DB":       "socialconnect_test",
	},
	ReadyFunc: func(ctx context.Context, c dktest.ContainerInfo) bool {
		cfg, err := containerConfig(c)
		if err != nil {
			return false
		}
		db, err := sql.Open("postgres", cfg.ConnectionString())
		if err != nil {
			return false
		}
		defer db.Close()
		return db.PingContext(ctx) == nil
	},
}

func containerConfig(c dktest.ContainerInfo) (*Config, error) {
	host, port, err := c.FirstPort()
	if err != nil {
		return nil, err
	}
	return &Config{
		Host:     host,
		Port:     port,
		User:     "postgres",
		Password: "postgres",
		Database: "socialconnect_test",
		SSLMode:  "disable",
	}, nil
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, name,
	).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestMigrations_UpAndDown(t *testing.T) {
	dktest.Run(t, postgresImage, postgresOptions, func(t *testing.T, c dktest.ContainerInfo) {
		cfg, err := containerConfig(c)
		require.NoError(t, err)

		db, err := sql.Open("postgres", cfg.ConnectionString())
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, RunMigrations(cfg))
		assert.True(t, tableExists(t, db, "social_connections"))

		require.NoError(t, RunMigrations(cfg), "re-running is a no-op")

		driver, err := postgres.WithInstance(db, &postgres.Config{})
		require.NoError(t, err)
		version, dirty, err := driver.Version()
		require.NoError(t, err)
		assert.Equal(t, 1, version)
		assert.False(t, dirty)

		require.NoError(t, RollbackMigrations(cfg, 1))
		assert.False(t, tableExists(t, db, "social_connections"))
	})
}

func TestConnectionStore_Postgres(t *testing.T) {
	dktest.Run(t, postgresImage, postgresOptions, func(t *testing.T, c dktest.ContainerInfo) {
		ctx := context.Background()
		cfg, err := containerConfig(c)
		require.NoError(t, err)
		require.NoError(t, RunMigrations(cfg))

		pool, err := NewPool(ctx, cfg)
		require.NoError(t, err)
		defer pool.Close()

		store, err := NewConnectionStore(pool, testEncryptionKey)
		require.NoError(t, err)

		first, err := store.Upsert(ctx, &services.Connection{
			UserID: "u1", Platform: services.PlatformFacebook, AccountID: services.PersonalAccountID, AccessToken: "t1",
		})
		require.NoError(t, err)

		second, err := store.Upsert(ctx, &services.Connection{
			UserID: "u1", Platform: services.PlatformFacebook, AccountID: "page-1",
			AccessToken: "t2", PageAccessToken: "pt",
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID, "active record is overwritten in place")

		got, err := store.Get(ctx, "u1", services.PlatformFacebook)
		require.NoError(t, err)
		assert.Equal(t, "page-1", got.AccountID)
		assert.Equal(t, "pt", got.PageAccessToken)

		var raw string
		require.NoError(t, pool.QueryRow(ctx, `SELECT access_token FROM social_connections WHERE id = $1`, got.ID).Scan(&raw))
		assert.NotEqual(t, "t2", raw)

		require.NoError(t, store.Deactivate(ctx, "u1", services.PlatformFacebook))
		_, err = store.Get(ctx, "u1", services.PlatformFacebook)
		assert.ErrorIs(t, err, services.ErrConnectionNotFound)

		third, err := store.Upsert(ctx, &services.Connection{
			UserID: "u1", Platform: services.PlatformFacebook, AccountID: "page-2", AccessToken: "t3",
		})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, third.ID, "reconnect after disconnect creates a new record")
	})
}
