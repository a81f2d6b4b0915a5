package domain

import (
	"fmt"
	"time"
)

// TaskStatus represents the processing state of a moderation task.
type TaskStatus string

// Possible task status values.
const (
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusProcessing marks a task claimed by a worker. Clients never
	// see it: the result endpoint reports it as pending.
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Public maps internal statuses onto the three statuses exposed to clients.
func (s TaskStatus) Public() TaskStatus {
	if s == TaskStatusProcessing {
		return TaskStatusPending
	}
	return s
}

// ModerationTask is one moderation request for an ad, tracked from
// submission to a terminal outcome.
//
// IsViolation and Probability are set iff Status is completed; ErrorMessage
// is set iff Status is failed; ProcessedAt is set iff the task is terminal.
type ModerationTask struct {
	ID           int64      `json:"task_id"`
	ItemID       int64      `json:"item_id"`
	Status       TaskStatus `json:"status"`
	IsViolation  *bool      `json:"is_violation,omitempty"`
	Probability  *float64   `json:"probability,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ClaimedAt    *time.Time `json:"-"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// NewPendingTask returns an unsaved pending task for itemID.
func NewPendingTask(itemID int64) (*ModerationTask, error) {
	if itemID <= 0 {
		return nil, fmt.Errorf("%w: item_id=%d", ErrInvalidID, itemID)
	}
	return &ModerationTask{
		ItemID:    itemID,
		Status:    TaskStatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Complete moves a non-terminal task to completed. It reports false and
// leaves the task untouched when the task is already terminal.
func (t *ModerationTask) Complete(isViolation bool, probability float64, at time.Time) (bool, error) {
	if probability < 0 || probability > 1 {
		return false, ErrInvalidProbability
	}
	if t.Status.IsTerminal() {
		return false, nil
	}
	t.Status = TaskStatusCompleted
	t.IsViolation = &isViolation
	t.Probability = &probability
	t.ErrorMessage = nil
	t.ProcessedAt = &at
	return true, nil
}

// Fail moves a non-terminal task to failed. It reports false and leaves the
// task untouched when the task is already terminal.
func (t *ModerationTask) Fail(message string, at time.Time) bool {
	if t.Status.IsTerminal() {
		return false
	}
	t.Status = TaskStatusFailed
	t.ErrorMessage = &message
	t.IsViolation = nil
	t.Probability = nil
	t.ProcessedAt = &at
	return true
}

// Validate checks the field invariants tied to the task status.
func (t *ModerationTask) Validate() error {
	if t.ItemID <= 0 {
		return fmt.Errorf("%w: item_id=%d", ErrInvalidID, t.ItemID)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, t.Status)
	}

	hasResult := t.IsViolation != nil && t.Probability != nil
	switch t.Status {
	case TaskStatusCompleted:
		if !hasResult || t.ErrorMessage != nil {
			return fmt.Errorf("%w: completed task must carry a result and no error", ErrValidation)
		}
		if *t.Probability < 0 || *t.Probability > 1 {
			return ErrInvalidProbability
		}
	case TaskStatusFailed:
		if t.ErrorMessage == nil || t.IsViolation != nil || t.Probability != nil {
			return fmt.Errorf("%w: failed task must carry an error and no result", ErrValidation)
		}
	default:
		if t.IsViolation != nil || t.Probability != nil || t.ErrorMessage != nil {
			return fmt.Errorf("%w: %s task cannot carry an outcome", ErrValidation, t.Status)
		}
	}

	if t.Status.IsTerminal() != (t.ProcessedAt != nil) {
		return fmt.Errorf("%w: processed_at must be set iff the task is terminal", ErrValidation)
	}
	return nil
}
