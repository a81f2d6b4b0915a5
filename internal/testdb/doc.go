//go:build integration

// Package testdb provides helpers for PostgreSQL integration tests.
//
// The database comes from TEST_DATABASE_URL, falling back to DATABASE_URL.
// Without either, tests are skipped locally and fail in CI. GetTestDBWithT opens a
// connection, applies the embedded migrations once per process and registers
// cleanup; WithTx runs a test body in a transaction that is always rolled
// back; ResetTables truncates the moderation tables for tests that need
// committed data visible across connections.
//
//	func TestClaim(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        tasks := postgres.NewPostgresTaskStore(tx)
//	        ...
//	    })
//	}
package testdb
