//go:build integration

package testdb

import (
	"time"

	"github.com/phrazzld/ad-moderation/internal/ciutil"
)

// TestTimeout bounds connection checks and migrations in tests.
const TestTimeout = 30 * time.Second

// GetTestDatabaseURL returns the database URL used by integration tests:
// TEST_DATABASE_URL, falling back to DATABASE_URL.
func GetTestDatabaseURL() string {
	return ciutil.TestDatabaseURL(nil)
}

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}
