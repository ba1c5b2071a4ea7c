package db

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testPool is shared by every test of the package; nil when no database is available.
var (
	testPool *pgxpool.Pool
	testDSN  string
)

// TestMain starts a PostgreSQL container and applies migrations. Without
// Docker, or with -short, database tests are skipped.
func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(runTests(m))
}

func runTests(m *testing.M) int {
	if testing.Short() {
		return m.Run()
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		slog.Warn("postgres container unavailable, skipping database tests", "err", err)
		return m.Run()
	}
	defer func() {
		_ = container.Terminate(ctx)
	}()

	host, err := container.Host(ctx)
	if err != nil {
		slog.Error("getting container host", "err", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		slog.Error("getting container port", "err", err)
		return 1
	}
	testDSN = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	if err := RunMigrations(ctx, testDSN); err != nil {
		slog.Error("running migrations", "err", err)
		return 1
	}

	testPool, err = pgxpool.New(ctx, testDSN)
	if err != nil {
		slog.Error("connecting to test db", "err", err)
		return 1
	}
	defer testPool.Close()

	return m.Run()
}

// setupTestDB returns the shared pool with every catalog table emptied.
func setupTestDB(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	if testPool == nil {
		tb.Skip("database not available")
	}

	ctx := context.Background()
	queries := []string{
		"TRUNCATE modifier_sets CASCADE",
		"TRUNCATE tag_groups CASCADE",
		"TRUNCATE stat_types, stat_relationships, catalog_settings",
	}
	for _, query := range queries {
		if _, err := testPool.Exec(ctx, query); err != nil {
			tb.Fatalf("cleaning tables: %v", err)
		}
	}
	return testPool
}
