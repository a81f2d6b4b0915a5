package store

import (
	"context"
	"database/sql"
)

// DBTX is an interface that abstracts the database access layer.
// It is implemented by both *sql.DB and *sql.Tx, allowing our code
// to work with either a database connection or a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Both the pool and a transaction can back a store.
var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

// SweepLocker serializes a periodic job across processes sharing one database.
type SweepLocker interface {
	// WithLock runs fn while holding the lock. When another holder has it,
	// fn is not run and acquired is false.
	WithLock(ctx context.Context, fn func(ctx context.Context) error) (acquired bool, err error)
}
