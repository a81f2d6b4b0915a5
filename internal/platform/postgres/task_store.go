package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/platform/logger"
	"github.com/phrazzld/ad-moderation/internal/store"
)

const taskColumns = `id, item_id, status, is_violation, probability, error_message, created_at, claimed_at, processed_at`

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
type PostgresTaskStore struct {
	db  store.DBTX
	now func() time.Time
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// CreatePending implements store.TaskStore.CreatePending
func (s *PostgresTaskStore) CreatePending(ctx context.Context, itemID int64) (int64, error) {
	log := logger.FromContext(ctx)

	task, err := domain.NewPendingTask(itemID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO moderation_results (item_id, status, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, task.ItemID, string(task.Status), s.now()).Scan(&id)
	if err != nil {
		log.Error("failed to create moderation task", "item_id", itemID, "error", err)
		return 0, fmt.Errorf("failed to create moderation task: %w", MapError(err))
	}

	log.Debug("moderation task created", "task_id", id, "item_id", itemID)
	return id, nil
}

// OldestPendingForItem implements store.TaskStore.OldestPendingForItem
func (s *PostgresTaskStore) OldestPendingForItem(ctx context.Context, itemID int64) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id
		FROM moderation_results
		WHERE item_id = $1 AND status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, itemID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find pending task for item_id=%d: %w", itemID, MapError(err))
	}
	return id, true, nil
}

// ClaimOldestPending implements store.TaskStore.ClaimOldestPending.
// SKIP LOCKED lets a concurrent claimer move on to the next row instead of
// waiting for, and then double-claiming, the same one.
func (s *PostgresTaskStore) ClaimOldestPending(ctx context.Context, itemID int64, lease time.Duration) (int64, bool, error) {
	log := logger.FromContext(ctx)

	now := s.now()
	var leaseCutoff sql.NullTime
	if lease > 0 {
		leaseCutoff = sql.NullTime{Time: now.Add(-lease), Valid: true}
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE moderation_results
		SET status = 'processing', claimed_at = $2
		WHERE id = (
			SELECT id
			FROM moderation_results
			WHERE item_id = $1
			  AND (status = 'pending' OR (status = 'processing' AND claimed_at < $3))
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`, itemID, now, leaseCutoff).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		log.Error("failed to claim pending task", "item_id", itemID, "error", err)
		return 0, false, fmt.Errorf("failed to claim pending task for item_id=%d: %w", itemID, MapError(err))
	}

	log.Debug("moderation task claimed", "task_id", id, "item_id", itemID)
	return id, true, nil
}

// Get implements store.TaskStore.Get
func (s *PostgresTaskStore) Get(ctx context.Context, taskID int64) (*domain.ModerationTask, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM moderation_results WHERE id = $1`, taskID)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get moderation task %d: %w", taskID, MapError(err))
	}
	return task, nil
}

// MarkCompleted implements store.TaskStore.MarkCompleted
func (s *PostgresTaskStore) MarkCompleted(
	ctx context.Context,
	taskID int64,
	isViolation bool,
	probability float64,
) error {
	if probability < 0 || probability > 1 {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrInvalidProbability)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE moderation_results
		SET status = 'completed', is_violation = $2, probability = $3,
		    error_message = NULL, processed_at = $4
		WHERE id = $1 AND status IN ('pending', 'processing')
	`, taskID, isViolation, probability, s.now())
	if err != nil {
		logger.FromContext(ctx).Error("failed to mark task completed", "task_id", taskID, "error", err)
		return fmt.Errorf("failed to mark task %d completed: %w", taskID, MapError(err))
	}

	return s.checkTerminalUpdate(ctx, taskID, result, domain.TaskStatusCompleted)
}

// MarkFailed implements store.TaskStore.MarkFailed
func (s *PostgresTaskStore) MarkFailed(ctx context.Context, taskID int64, errorMessage string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE moderation_results
		SET status = 'failed', error_message = $2,
		    is_violation = NULL, probability = NULL, processed_at = $3
		WHERE id = $1 AND status IN ('pending', 'processing')
	`, taskID, errorMessage, s.now())
	if err != nil {
		logger.FromContext(ctx).Error("failed to mark task failed", "task_id", taskID, "error", err)
		return fmt.Errorf("failed to mark task %d failed: %w", taskID, MapError(err))
	}

	return s.checkTerminalUpdate(ctx, taskID, result, domain.TaskStatusFailed)
}

// checkTerminalUpdate distinguishes "already terminal" (no-op) from
// "does not exist" when a terminal update touched no row.
func (s *PostgresTaskStore) checkTerminalUpdate(
	ctx context.Context,
	taskID int64,
	result sql.Result,
	target domain.TaskStatus,
) error {
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var status domain.TaskStatus
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM moderation_results WHERE id = $1`, taskID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check task %d status: %w", taskID, MapError(err))
	}

	logger.FromContext(ctx).Warn("task already terminal, update ignored",
		"task_id", taskID,
		"status", status,
		"requested_status", target)
	return nil
}

// ListStale implements store.TaskStore.ListStale
func (s *PostgresTaskStore) ListStale(
	ctx context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
	limit int,
) ([]domain.ModerationTask, error) {
	var column string
	switch status {
	case domain.TaskStatusPending:
		column = "created_at"
	case domain.TaskStatusProcessing:
		column = "claimed_at"
	default:
		return nil, fmt.Errorf("%w: cannot list stale %q tasks", store.ErrInvalidEntity, status)
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM moderation_results
		WHERE status = $1 AND `+column+` < $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`, string(status), s.now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale %s tasks: %w", status, MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []domain.ModerationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan moderation task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate moderation tasks: %w", MapError(err))
	}
	return tasks, nil
}

// ResetClaim implements store.TaskStore.ResetClaim
func (s *PostgresTaskStore) ResetClaim(ctx context.Context, taskID int64, claimedBefore time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE moderation_results
		SET status = 'pending', claimed_at = NULL
		WHERE id = $1 AND status = 'processing' AND claimed_at < $2
	`, taskID, claimedBefore)
	if err != nil {
		return false, fmt.Errorf("failed to reset claim on task %d: %w", taskID, MapError(err))
	}
	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	if n == 0 {
		logger.FromContext(ctx).Debug("claim changed since listing, not reset", "task_id", taskID)
		return false, nil
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.ModerationTask, error) {
	var (
		task        domain.ModerationTask
		isViolation sql.NullBool
		probability sql.NullFloat64
		errMsg      sql.NullString
		claimedAt   sql.NullTime
		processedAt sql.NullTime
	)
	if err := row.Scan(
		&task.ID,
		&task.ItemID,
		&task.Status,
		&isViolation,
		&probability,
		&errMsg,
		&task.CreatedAt,
		&claimedAt,
		&processedAt,
	); err != nil {
		return nil, err
	}

	if isViolation.Valid {
		task.IsViolation = &isViolation.Bool
	}
	if probability.Valid {
		task.Probability = &probability.Float64
	}
	if errMsg.Valid {
		task.ErrorMessage = &errMsg.String
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		task.ClaimedAt = &t
	}
	if processedAt.Valid {
		t := processedAt.Time
		task.ProcessedAt = &t
	}
	return &task, nil
}
