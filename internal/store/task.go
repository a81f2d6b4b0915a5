package store

import (
	"context"
	"time"

	"github.com/phrazzld/ad-moderation/internal/domain"
)

// TaskStore is the durable table of moderation tasks keyed by task id.
//
// Terminal writes (MarkCompleted, MarkFailed) only apply to tasks that are
// still pending or processing; applying them again to a terminal task is a
// no-op and returns nil.
type TaskStore interface {
	// CreatePending inserts a new pending task for itemID and returns its id.
	CreatePending(ctx context.Context, itemID int64) (int64, error)

	// OldestPendingForItem returns the pending task with the earliest
	// creation time for itemID. ok is false when none exists.
	OldestPendingForItem(ctx context.Context, itemID int64) (taskID int64, ok bool, err error)

	// ClaimOldestPending atomically moves the oldest claimable task for
	// itemID to processing and returns its id. A task is claimable while
	// pending, or while processing under a claim older than lease, which is
	// how a redelivered message recovers a claim left by a crashed worker.
	// A non-positive lease never takes over a claim. Concurrent callers
	// never receive the same id. ok is false when nothing is claimable.
	ClaimOldestPending(ctx context.Context, itemID int64, lease time.Duration) (taskID int64, ok bool, err error)

	// Get returns ErrTaskNotFound when the task does not exist.
	Get(ctx context.Context, taskID int64) (*domain.ModerationTask, error)

	// MarkCompleted records the classifier verdict and sets processed_at.
	MarkCompleted(ctx context.Context, taskID int64, isViolation bool, probability float64) error

	// MarkFailed records the failure reason and sets processed_at.
	MarkFailed(ctx context.Context, taskID int64, errorMessage string) error

	// ListStale returns up to limit tasks in status whose last transition
	// (claimed_at for processing, created_at for pending) is older than olderThan.
	ListStale(ctx context.Context, status domain.TaskStatus, olderThan time.Duration, limit int) ([]domain.ModerationTask, error)

	// ResetClaim moves a processing task back to pending when its claim is
	// older than claimedBefore. reset is false when the task finished or was
	// claimed again in the meantime.
	ResetClaim(ctx context.Context, taskID int64, claimedBefore time.Time) (reset bool, err error)
}
