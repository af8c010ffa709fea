// Package dbtest connects repository tests to a real PostgreSQL instance.
// Connection parameters come from DB_*_TEST variables with localhost defaults;
// when the database is unreachable the dependent tests are skipped.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/config"
	"github.com/vasiliy-maslov/table-order-bot/internal/db"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config returns the test database configuration. Every test package uses its
// own schema so packages can run in parallel against one database.
func Config(schema string) config.PostgresConfig {
	_, filename, _, _ := runtime.Caller(0)
	rootDir := filepath.Join(filepath.Dir(filename), "..", "..", "..")

	return config.PostgresConfig{
		Host:            env("DB_HOST_TEST", "localhost"),
		Port:            env("DB_PORT_TEST", "5432"),
		User:            env("DB_USER_TEST", "postgres"),
		Password:        env("DB_PASSWORD_TEST", "123456"),
		DBName:          env("DB_NAME_TEST", "restaurant_test"),
		SSLMode:         env("DB_SSLMODE_TEST", "disable"),
		Schema:          schema,
		MaxConns:        5,
		MinConns:        0,
		MaxConnLifetime: 5 * time.Minute,
		MigrationsPath:  filepath.Join(rootDir, "migrations"),
	}
}

// Connect returns a migrated pool, or nil when no test database is available.
func Connect(schema string) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := db.New(ctx, Config(schema))
	if err != nil {
		log.Warn().Err(err).Msg("Test database unavailable, repository tests will be skipped")
		return nil
	}
	return pg.Pool
}

// Reset skips t when pool is nil and otherwise truncates every table before and after the test.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if pool == nil {
		t.Skip("test database unavailable")
	}

	truncate := func() {
		_, err := pool.Exec(context.Background(),
			"TRUNCATE TABLE order_items, orders, employees, items, qrcodes RESTART IDENTITY CASCADE")
		if err != nil {
			t.Fatalf("Failed to truncate tables: %v", err)
		}
	}

	truncate()
	t.Cleanup(truncate)
}
