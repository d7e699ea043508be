// Package pgtest starts a disposable PostgreSQL container with the storefront schema for integration suites.
package pgtest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SkipIntegrationTests is the environment variable that disables container-backed suites.
const SkipIntegrationTests = "STOREFRONT_SKIP_INTEGRATION_TESTS"

// SkipIfDisabled skips the test when integration tests are turned off.
func SkipIfDisabled(t *testing.T) {
	t.Helper()
	if os.Getenv(SkipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + SkipIntegrationTests + " env var")
	}
}

// Env is a running PostgreSQL container with migrations applied.
type Env struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
	logger    *slog.Logger
}

// Start runs the container, connects a pool and applies every migration.
func Start(ctx context.Context, t *testing.T) *Env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	env := &Env{logger: logger}

	var err error
	// 1. Start a PostgreSQL container and wait for it to accept connections.
	env.Container, err = postgres.Run(ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(t, err, "Failed to run PostgreSQL container")

	// 2. Connect
	env.ConnStr, err = env.Container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string from container")
	env.Pool, err = pgxpool.New(ctx, env.ConnStr)
	require.NoError(t, err, "Failed to create pgxpool")
	for i := range 10 {
		logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		if err = env.Pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	require.NoError(t, err, "Failed to connect to PostgreSQL after retries")

	// 3. Migrate
	m, err := migrate.New("file://"+MigrationsPath(), env.ConnStr)
	require.NoError(t, err, "Failed to create migrate instance")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(t, err, "Failed to apply migrations")
	}
	_, _ = m.Close()
	logger.Info("Migrations applied for integration tests")
	return env
}

// Truncate empties every storefront table.
func (e *Env) Truncate(ctx context.Context, t *testing.T) {
	t.Helper()
	_, err := e.Pool.Exec(ctx, "TRUNCATE TABLE order_items, orders, cart_items, carts, products CASCADE")
	require.NoError(t, err, "Failed to truncate tables")
}

// Stop closes the pool and terminates the container.
func (e *Env) Stop(ctx context.Context) {
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.Container != nil {
		if err := e.Container.Terminate(ctx); err != nil {
			e.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

// MigrationsPath returns the absolute path of the repository's migrations directory.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}
