package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvisoryLock_WithLock(t *testing.T) {
	lockSQL := regexp.QuoteMeta("SELECT pg_try_advisory_xact_lock($1)")
	const key = int64(4242)

	t.Run("runs fn while holding the lock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(key).
			WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_xact_lock"}).AddRow(true))
		mock.ExpectCommit()

		ran := false
		acquired, err := NewAdvisoryLock(db, key).WithLock(context.Background(), func(context.Context) error {
			ran = true
			return nil
		})

		require.NoError(t, err)
		assert.True(t, acquired)
		assert.True(t, ran)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips fn when another session holds the lock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(key).
			WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_xact_lock"}).AddRow(false))
		mock.ExpectCommit()

		acquired, err := NewAdvisoryLock(db, key).WithLock(context.Background(), func(context.Context) error {
			t.Fatal("fn must not run without the lock")
			return nil
		})

		require.NoError(t, err)
		assert.False(t, acquired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("releases the lock by rolling back when fn fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(key).
			WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_xact_lock"}).AddRow(true))
		mock.ExpectRollback()

		sweepErr := errors.New("list failed")
		acquired, err := NewAdvisoryLock(db, key).WithLock(context.Background(), func(context.Context) error {
			return sweepErr
		})

		assert.ErrorIs(t, err, sweepErr)
		assert.True(t, acquired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports lock query failures", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		acquired, err := NewAdvisoryLock(db, key).WithLock(context.Background(), func(context.Context) error {
			return nil
		})

		require.Error(t, err)
		assert.False(t, acquired)
		assert.Contains(t, err.Error(), "advisory lock")
	})
}
