// Package testdb provides env-gated helpers for tests that need a real
// PostgreSQL database. It depends only on store-level packages so any
// package can use it without import cycles.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// Timeout bounds individual database operations in tests.
const Timeout = 5 * time.Second

// IsIntegrationTestEnvironment reports whether a test database is
// configured. Database-backed tests skip themselves when it returns false.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// GetTestDatabaseURL returns the database URL for tests, checking
// DATABASE_URL and BRIEF_TEST_DB_URL in that order.
func GetTestDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("BRIEF_TEST_DB_URL")
}

// Connect opens and pings the configured test database.
func Connect() (*sql.DB, error) {
	db, err := sql.Open("pgx", GetTestDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("open test database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping test database: %w", err)
	}
	return db, nil
}

// ApplyMigrations runs the application migrations against db. It is called
// from TestMain, before testing.T values exist, so it returns an error
// instead of failing a test.
func ApplyMigrations(db *sql.DB) error {
	root, err := findProjectRoot()
	if err != nil {
		return err
	}

	migrationsDir := filepath.Join(root, "cmd", "server", "migrations")
	if _, err := os.Stat(migrationsDir); err != nil {
		return fmt.Errorf("migrations directory %s: %w", migrationsDir, err)
	}

	goose.SetBaseFS(os.DirFS(migrationsDir))
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// ResetTables truncates the given tables, cascading to dependents, so each
// test starts from a clean slate.
func ResetTables(t *testing.T, db *sql.DB, tables ...string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	for _, table := range tables {
		_, err := db.ExecContext(ctx, "TRUNCATE "+table+" RESTART IDENTITY CASCADE")
		require.NoError(t, err, "truncate %s", table)
	}
}

// findProjectRoot walks upward from the working directory until it finds
// go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod above %s", dir)
		}
		dir = parent
	}
}
