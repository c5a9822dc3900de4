// Package integration exercises the engine against a real PostgreSQL
// instance via testcontainers. These tests require Docker to be running.
//
// Usage:
//
//	go test ./tests/integration/
//
// Each setup starts a PostgreSQL container, applies the migrations, and
// cleans up after completion.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/finlake/enrich/internal/db"
	"github.com/finlake/enrich/internal/store"
)

// TestContainer holds the PostgreSQL container and the connected store.
type TestContainer struct {
	Container testcontainers.Container
	DB        *db.DB
	Store     *store.GormStore
}

// SetupTestContainer starts a PostgreSQL container, applies the migrations,
// and returns a store wired to it.
func SetupTestContainer(t *testing.T) *TestContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
	defer cancel()

	migrationsPath, err := filepath.Abs("../../migrations")
	if err != nil {
		t.Fatalf("Failed to get absolute path to migrations: %v", err)
	}

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("enrich_test"),
		postgres.WithUsername("enrich_user"),
		postgres.WithPassword("enrich_password"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp").WithStartupTimeout(60),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := &db.Config{
		Host:     host,
		Port:     port.Port(),
		User:     "enrich_user",
		Password: "enrich_password",
		Name:     "enrich_test",
		SSLMode:  "disable",
	}

	database, err := db.Connect(config)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := runMigrations(database, migrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestContainer{
		Container: pgContainer,
		DB:        database,
		Store:     store.NewGormStore(database.DB),
	}
}

// Cleanup terminates the container and closes the database connection.
func (tc *TestContainer) Cleanup(t *testing.T) {
	t.Helper()

	if tc.DB != nil {
		tc.DB.Close()
	}
	if tc.Container != nil {
		if err := tc.Container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}
}

// runMigrations executes the schema scripts in order.
func runMigrations(database *db.DB, migrationsPath string) error {
	schemaPath := filepath.Join(migrationsPath, "0001_init.sql")
	schemaSQL, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	if err := database.Exec(string(schemaSQL)).Error; err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
