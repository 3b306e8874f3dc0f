// Package tests provides integration test helpers and utilities.
package tests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testAPIKey = "test-api-key-12345"

// testDB wraps a PostgreSQL test container with a ready-to-use pool.
type testDB struct {
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
}

// setupTestDB starts a pgvector-enabled Postgres container, applies the
// engine's migrations, and returns a connected pool. The container and pool
// are torn down via t.Cleanup.
func setupTestDB(t *testing.T) *testDB {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("ragcore_test"),
		postgres.WithUsername("ragcore_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		require.NoError(t, err, "get connection string")
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		require.NoError(t, err, "create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
		require.NoError(t, err, "ping database")
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
		require.NoError(t, err, "run migrations")
	}

	t.Cleanup(func() {
		pool.Close()
		_ = pgContainer.Terminate(context.Background())
	})

	return &testDB{container: pgContainer, pool: pool}
}

// runMigrations applies every migrations/*.sql file in lexical order.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := findProjectRoot()
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(filepath.Join(root, "migrations"))
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// #nosec G304 -- migration paths come from the repo's own migrations dir, not user input
		sqlBytes, err := os.ReadFile(filepath.Join(root, "migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// findProjectRoot walks up from this file's directory until it finds go.mod.
func findProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("determine caller file path")
	}

	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("locate project root (go.mod)")
		}

		dir = parent
	}
}

// seedVector returns a []float32 of dim zeros with a single 1.0 at
// index%dim, giving tests distinct but comparable chunk embeddings.
func seedVector(dim, index int) []float32 {
	v := make([]float32, dim)
	v[index%dim] = 1.0

	return v
}
