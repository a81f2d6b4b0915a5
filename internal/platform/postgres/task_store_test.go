package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMockTaskStore(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewPostgresTaskStore(db)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func taskRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "item_id", "status", "is_violation", "probability",
		"error_message", "created_at", "claimed_at", "processed_at",
	})
}

func TestPostgresTaskStore_CreatePending(t *testing.T) {
	t.Run("returns generated id", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO moderation_results")).
			WithArgs(int64(42), "pending", fixedNow).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		id, err := s.CreatePending(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive item id without touching the database", func(t *testing.T) {
		s, mock := newMockTaskStore(t)

		_, err := s.CreatePending(context.Background(), 0)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO moderation_results")).
			WillReturnError(errors.New("connection reset"))

		_, err := s.CreatePending(context.Background(), 42)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestPostgresTaskStore_ClaimOldestPending(t *testing.T) {
	claimSQL := regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")
	lease := 45 * time.Second

	t.Run("claims oldest pending task", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(claimSQL).
			WithArgs(int64(42), fixedNow, fixedNow.Add(-lease)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

		id, ok, err := s.ClaimOldestPending(context.Background(), 42, lease)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(3), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("claims expired processing rows alongside pending ones", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(
			"(status = 'pending' OR (status = 'processing' AND claimed_at < $3))",
		)).
			WithArgs(int64(42), fixedNow, fixedNow.Add(-lease)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

		id, ok, err := s.ClaimOldestPending(context.Background(), 42, lease)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(1), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no lease never takes over a claim", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(claimSQL).
			WithArgs(int64(42), fixedNow, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

		_, ok, err := s.ClaimOldestPending(context.Background(), 42, 0)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports none when nothing is pending", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(claimSQL).WillReturnError(sql.ErrNoRows)

		_, ok, err := s.ClaimOldestPending(context.Background(), 42, lease)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("propagates database errors", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(claimSQL).WillReturnError(errors.New("deadlock detected"))

		_, ok, err := s.ClaimOldestPending(context.Background(), 42, lease)
		require.Error(t, err)
		assert.False(t, ok)
	})
}

func TestPostgresTaskStore_OldestPendingForItem(t *testing.T) {
	s, mock := newMockTaskStore(t)
	query := regexp.QuoteMeta("ORDER BY created_at ASC, id ASC LIMIT 1")

	mock.ExpectQuery(query).WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(query).WithArgs(int64(43)).WillReturnError(sql.ErrNoRows)

	id, ok, err := s.OldestPendingForItem(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	_, ok, err = s.OldestPendingForItem(context.Background(), 43)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_Get(t *testing.T) {
	getSQL := regexp.QuoteMeta("FROM moderation_results WHERE id = $1")

	t.Run("completed task", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		processed := fixedNow.Add(time.Second)
		mock.ExpectQuery(getSQL).WithArgs(int64(5)).
			WillReturnRows(taskRows().AddRow(
				int64(5), int64(42), "completed", true, 0.83, nil, fixedNow, fixedNow, processed,
			))

		task, err := s.Get(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, task.Status)
		require.NotNil(t, task.IsViolation)
		assert.True(t, *task.IsViolation)
		require.NotNil(t, task.Probability)
		assert.InDelta(t, 0.83, *task.Probability, 1e-9)
		assert.Nil(t, task.ErrorMessage)
		require.NotNil(t, task.ProcessedAt)
		assert.Equal(t, processed, *task.ProcessedAt)
		assert.NoError(t, task.Validate())
	})

	t.Run("pending task has no outcome", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(getSQL).WithArgs(int64(6)).
			WillReturnRows(taskRows().AddRow(
				int64(6), int64(42), "pending", nil, nil, nil, fixedNow, nil, nil,
			))

		task, err := s.Get(context.Background(), 6)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, task.Status)
		assert.Nil(t, task.IsViolation)
		assert.Nil(t, task.Probability)
		assert.Nil(t, task.ProcessedAt)
		assert.Nil(t, task.ClaimedAt)
	})

	t.Run("missing task", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(getSQL).WithArgs(int64(999)).WillReturnError(sql.ErrNoRows)

		_, err := s.Get(context.Background(), 999)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.True(t, store.IsNotFoundError(err))
	})
}

func TestPostgresTaskStore_MarkCompleted(t *testing.T) {
	updateSQL := regexp.QuoteMeta("SET status = 'completed'")
	statusSQL := regexp.QuoteMeta("SELECT status FROM moderation_results WHERE id = $1")

	t.Run("transitions non-terminal task", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(updateSQL).
			WithArgs(int64(5), true, 0.9, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.MarkCompleted(context.Background(), 5, true, 0.9))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second application is a no-op", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(statusSQL).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

		require.NoError(t, s.MarkCompleted(context.Background(), 5, false, 0.1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing task", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(statusSQL).WillReturnError(sql.ErrNoRows)

		err := s.MarkCompleted(context.Background(), 999, false, 0.1)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("rejects probability outside unit interval", func(t *testing.T) {
		s, mock := newMockTaskStore(t)

		err := s.MarkCompleted(context.Background(), 5, true, 1.5)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTaskStore_MarkFailed(t *testing.T) {
	updateSQL := regexp.QuoteMeta("SET status = 'failed'")

	t.Run("records error message", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(updateSQL).
			WithArgs(int64(5), "Ad not found: item_id=42", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.MarkFailed(context.Background(), 5, "Ad not found: item_id=42"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already terminal task is left alone", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status")).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("failed"))

		assert.NoError(t, s.MarkFailed(context.Background(), 5, "again"))
	})

	t.Run("database error", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(updateSQL).WillReturnError(errors.New("connection refused"))

		err := s.MarkFailed(context.Background(), 5, "boom")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestPostgresTaskStore_ListStale(t *testing.T) {
	t.Run("processing tasks are aged by claim time", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		claimed := fixedNow.Add(-time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND claimed_at < $2")).
			WithArgs("processing", fixedNow.Add(-10*time.Minute), 50).
			WillReturnRows(taskRows().
				AddRow(int64(1), int64(42), "processing", nil, nil, nil, claimed, claimed, nil).
				AddRow(int64(2), int64(43), "processing", nil, nil, nil, claimed, claimed, nil))

		tasks, err := s.ListStale(context.Background(), domain.TaskStatusProcessing, 10*time.Minute, 50)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, int64(43), tasks[1].ItemID)
		require.NotNil(t, tasks[0].ClaimedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pending tasks are aged by creation time", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND created_at < $2")).
			WithArgs("pending", sqlmock.AnyArg(), 100).
			WillReturnRows(taskRows())

		tasks, err := s.ListStale(context.Background(), domain.TaskStatusPending, time.Minute, 0)
		require.NoError(t, err)
		assert.Empty(t, tasks)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal statuses are rejected", func(t *testing.T) {
		s, _ := newMockTaskStore(t)

		_, err := s.ListStale(context.Background(), domain.TaskStatusCompleted, time.Minute, 10)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresTaskStore_ResetClaim(t *testing.T) {
	resetSQL := regexp.QuoteMeta("WHERE id = $1 AND status = 'processing' AND claimed_at < $2")
	cutoff := fixedNow.Add(-10 * time.Minute)

	t.Run("resets an expired claim", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(resetSQL).
			WithArgs(int64(9), cutoff).
			WillReturnResult(sqlmock.NewResult(0, 1))

		reset, err := s.ResetClaim(context.Background(), 9, cutoff)
		require.NoError(t, err)
		assert.True(t, reset)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves a refreshed or finished claim alone", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(resetSQL).
			WithArgs(int64(10), cutoff).
			WillReturnResult(sqlmock.NewResult(0, 0))

		reset, err := s.ResetClaim(context.Background(), 10, cutoff)
		require.NoError(t, err)
		assert.False(t, reset)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database errors", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(resetSQL).WillReturnError(errors.New("connection reset"))

		reset, err := s.ResetClaim(context.Background(), 11, cutoff)
		require.Error(t, err)
		assert.False(t, reset)
		assert.Contains(t, err.Error(), "task 11")
	})
}
