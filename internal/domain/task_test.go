package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPendingTask(t *testing.T) {
	t.Parallel()

	task, err := NewPendingTask(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), task.ItemID)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Nil(t, task.ProcessedAt)
	assert.NoError(t, task.Validate())

	_, err = NewPendingTask(0)
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestTaskStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   TaskStatus
		valid    bool
		terminal bool
		public   TaskStatus
	}{
		{TaskStatusPending, true, false, TaskStatusPending},
		{TaskStatusProcessing, true, false, TaskStatusPending},
		{TaskStatusCompleted, true, true, TaskStatusCompleted},
		{TaskStatusFailed, true, true, TaskStatusFailed},
		{TaskStatus("archived"), false, false, TaskStatus("archived")},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.public, tt.status.Public())
		})
	}
}

func TestModerationTask_Complete(t *testing.T) {
	t.Parallel()

	task, err := NewPendingTask(1)
	require.NoError(t, err)
	now := time.Now().UTC()

	changed, err := task.Complete(true, 0.87, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.True(t, *task.IsViolation)
	assert.Equal(t, 0.87, *task.Probability)
	assert.Equal(t, now, *task.ProcessedAt)
	assert.NoError(t, task.Validate())

	t.Run("second completion is a no-op", func(t *testing.T) {
		changed, err := task.Complete(false, 0.1, now.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.True(t, *task.IsViolation)
		assert.Equal(t, 0.87, *task.Probability)
		assert.Equal(t, now, *task.ProcessedAt)
	})

	t.Run("fail after completion is a no-op", func(t *testing.T) {
		assert.False(t, task.Fail("boom", now))
		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.Nil(t, task.ErrorMessage)
	})

	t.Run("probability out of range", func(t *testing.T) {
		other, err := NewPendingTask(2)
		require.NoError(t, err)
		_, err = other.Complete(true, 1.2, now)
		assert.ErrorIs(t, err, ErrInvalidProbability)
		assert.Equal(t, TaskStatusPending, other.Status)
	})
}

func TestModerationTask_Fail(t *testing.T) {
	t.Parallel()

	task, err := NewPendingTask(404)
	require.NoError(t, err)
	task.Status = TaskStatusProcessing

	assert.True(t, task.Fail("Ad not found: item_id=404", time.Now().UTC()))
	assert.Equal(t, TaskStatusFailed, task.Status)
	assert.Equal(t, "Ad not found: item_id=404", *task.ErrorMessage)
	assert.Nil(t, task.IsViolation)
	assert.Nil(t, task.Probability)
	assert.NoError(t, task.Validate())
}

func TestModerationTask_Validate(t *testing.T) {
	t.Parallel()

	yes := true
	p := 0.5
	msg := "boom"
	now := time.Now()

	tests := []struct {
		name    string
		task    ModerationTask
		wantErr error
	}{
		{
			name:    "pending is valid",
			task:    ModerationTask{ItemID: 1, Status: TaskStatusPending},
			wantErr: nil,
		},
		{
			name:    "missing item id",
			task:    ModerationTask{Status: TaskStatusPending},
			wantErr: ErrInvalidID,
		},
		{
			name:    "unknown status",
			task:    ModerationTask{ItemID: 1, Status: "weird"},
			wantErr: ErrInvalidTaskStatus,
		},
		{
			name:    "completed without result",
			task:    ModerationTask{ItemID: 1, Status: TaskStatusCompleted, ProcessedAt: &now},
			wantErr: ErrValidation,
		},
		{
			name:    "failed with result",
			task:    ModerationTask{ItemID: 1, Status: TaskStatusFailed, ErrorMessage: &msg, IsViolation: &yes, ProcessedAt: &now},
			wantErr: ErrValidation,
		},
		{
			name:    "pending with processed_at",
			task:    ModerationTask{ItemID: 1, Status: TaskStatusPending, ProcessedAt: &now},
			wantErr: ErrValidation,
		},
		{
			name:    "completed without processed_at",
			task:    ModerationTask{ItemID: 1, Status: TaskStatusCompleted, IsViolation: &yes, Probability: &p},
			wantErr: ErrValidation,
		},
		{
			name:    "processing with error",
			task:    ModerationTask{ItemID: 1, Status: TaskStatusProcessing, ErrorMessage: &msg},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
