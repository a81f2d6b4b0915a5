//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/phrazzld/ad-moderation/internal/ciutil"
	"github.com/phrazzld/ad-moderation/internal/config"
	"github.com/phrazzld/ad-moderation/internal/platform/postgres"
	"github.com/phrazzld/ad-moderation/internal/redact"
	"github.com/stretchr/testify/require"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// GetTestDBWithT opens the test database, applies migrations and closes the
// pool when the test ends. It skips the test when no database is configured, except in CI
// where that is a failure.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	if ShouldSkipDatabaseTest() {
		if ciutil.IsCI() {
			t.Fatal("no test database configured in CI: set TEST_DATABASE_URL or DATABASE_URL")
		}
		t.Skip("no test database configured - skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, config.DatabaseConfig{URL: GetTestDatabaseURL(), MaxOpenConns: 10})
	if err != nil {
		t.Fatalf("failed to open test database: %s", redact.Error(err))
	}
	t.Cleanup(func() { _ = db.Close() })

	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(ctx, db, "up", nil)
	})
	require.NoError(t, migrateErr, "failed to apply migrations")

	return db
}

// ResetTables removes all rows from the application tables.
func ResetTables(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		`TRUNCATE moderation_results, ads, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "failed to truncate tables")
}
