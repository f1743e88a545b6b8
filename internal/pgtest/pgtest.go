// Package pgtest provides a PostgreSQL connection for integration tests.
package pgtest

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// EnvURL names the variable holding the test database connection string.
const EnvURL = "TEST_DATABASE_URL"

// TestDB represents a test database connection scoped to a throwaway schema
type TestDB struct {
	Pool   *pgxpool.Pool
	Schema string
}

// NewTestDB connects to the database named by TEST_DATABASE_URL and creates a
// fresh schema that is dropped when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv(EnvURL)
	if connString == "" {
		t.Skipf("Skipping database test: %s is not set", EnvURL)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")

	err = pool.Ping(ctx)
	require.NoError(t, err, "Failed to ping test database")

	schema := "contentrepo_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	t.Cleanup(func() {
		_, err := pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
		if err != nil {
			t.Logf("Failed to drop test schema %s: %v", schema, err)
		}
		pool.Close()
	})

	return &TestDB{Pool: pool, Schema: schema}
}

// RunTest runs a test with database setup and cleanup
func RunTest(t *testing.T, testFunc func(t *testing.T, db *TestDB)) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db := NewTestDB(t)
	testFunc(t, db)
}
