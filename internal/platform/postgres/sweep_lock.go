package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/phrazzld/ad-moderation/internal/store"
)

// AdvisoryLock is a store.SweepLocker backed by a transaction-scoped
// PostgreSQL advisory lock. The lock is released when the holding
// transaction ends, including when the holder's connection dies.
//
// Statements issued by fn go through their own connections and commit
// independently of the holding transaction, so the pool needs at least two
// connections.
type AdvisoryLock struct {
	db  *sql.DB
	key int64
}

// NewAdvisoryLock returns a lock identified by key.
func NewAdvisoryLock(db *sql.DB, key int64) *AdvisoryLock {
	return &AdvisoryLock{db: db, key: key}
}

var _ store.SweepLocker = (*AdvisoryLock)(nil)

// WithLock implements store.SweepLocker.WithLock
func (l *AdvisoryLock) WithLock(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	acquired := false
	err := store.RunInTransaction(ctx, l.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock($1)`, l.key).Scan(&acquired); err != nil {
			return fmt.Errorf("failed to try advisory lock %d: %w", l.key, MapError(err))
		}
		if !acquired {
			return nil
		}
		return fn(ctx)
	})
	return acquired, err
}
