package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/store"
)

// MemoryTaskStore is an in-memory store.TaskStore.
type MemoryTaskStore struct {
	mu     sync.Mutex
	tasks  map[int64]*domain.ModerationTask
	nextID int64
	now    func() time.Time

	// Calls counts invocations per method name.
	Calls map[string]int

	CreatePendingFn      func(ctx context.Context, itemID int64) (int64, error)
	ClaimOldestPendingFn func(ctx context.Context, itemID int64, lease time.Duration) (int64, bool, error)
	GetFn                func(ctx context.Context, taskID int64) (*domain.ModerationTask, error)
	MarkCompletedFn      func(ctx context.Context, taskID int64, isViolation bool, probability float64) error
	MarkFailedFn         func(ctx context.Context, taskID int64, errorMessage string) error
	ListStaleFn          func(ctx context.Context, status domain.TaskStatus, olderThan time.Duration, limit int) ([]domain.ModerationTask, error)
	ResetClaimFn         func(ctx context.Context, taskID int64, claimedBefore time.Time) (bool, error)
}

var _ store.TaskStore = (*MemoryTaskStore)(nil)

// NewMemoryTaskStore returns an empty store whose clock starts at a fixed
// instant and advances one second per created task.
func NewMemoryTaskStore() *MemoryTaskStore {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &MemoryTaskStore{
		tasks: make(map[int64]*domain.ModerationTask),
		Calls: make(map[string]int),
	}
	s.now = func() time.Time { return base.Add(time.Duration(s.nextID) * time.Second) }
	return s
}

// SetClock replaces the store clock.
func (s *MemoryTaskStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryTaskStore) record(method string) {
	s.mu.Lock()
	s.Calls[method]++
	s.mu.Unlock()
}

// CallCount returns how many times method was invoked.
func (s *MemoryTaskStore) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[method]
}

// Put inserts or replaces a task as-is.
func (s *MemoryTaskStore) Put(task domain.ModerationTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := task
	s.tasks[t.ID] = &t
	if t.ID > s.nextID {
		s.nextID = t.ID
	}
}

// Snapshot returns a copy of a task, or nil.
func (s *MemoryTaskStore) Snapshot(taskID int64) *domain.ModerationTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	c := *t
	return &c
}

// CreatePending implements store.TaskStore.CreatePending
func (s *MemoryTaskStore) CreatePending(ctx context.Context, itemID int64) (int64, error) {
	s.record("CreatePending")
	if s.CreatePendingFn != nil {
		return s.CreatePendingFn(ctx, itemID)
	}

	task, err := domain.NewPendingTask(itemID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	task.ID = s.nextID
	task.CreatedAt = s.now()
	s.tasks[task.ID] = task
	return task.ID, nil
}

func (s *MemoryTaskStore) oldestPendingLocked(itemID int64) (*domain.ModerationTask, bool) {
	return s.oldestLocked(itemID, func(t *domain.ModerationTask) bool {
		return t.Status == domain.TaskStatusPending
	})
}

func (s *MemoryTaskStore) oldestLocked(itemID int64, eligible func(*domain.ModerationTask) bool) (*domain.ModerationTask, bool) {
	var oldest *domain.ModerationTask
	for _, t := range s.tasks {
		if t.ItemID != itemID || !eligible(t) {
			continue
		}
		if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) ||
			(t.CreatedAt.Equal(oldest.CreatedAt) && t.ID < oldest.ID) {
			oldest = t
		}
	}
	return oldest, oldest != nil
}

// OldestPendingForItem implements store.TaskStore.OldestPendingForItem
func (s *MemoryTaskStore) OldestPendingForItem(ctx context.Context, itemID int64) (int64, bool, error) {
	s.record("OldestPendingForItem")
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.oldestPendingLocked(itemID)
	if !ok {
		return 0, false, nil
	}
	return t.ID, true, nil
}

// ClaimOldestPending implements store.TaskStore.ClaimOldestPending
func (s *MemoryTaskStore) ClaimOldestPending(ctx context.Context, itemID int64, lease time.Duration) (int64, bool, error) {
	s.record("ClaimOldestPending")
	if s.ClaimOldestPendingFn != nil {
		return s.ClaimOldestPendingFn(ctx, itemID, lease)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	t, ok := s.oldestLocked(itemID, func(t *domain.ModerationTask) bool {
		if t.Status == domain.TaskStatusPending {
			return true
		}
		return lease > 0 && t.Status == domain.TaskStatusProcessing &&
			t.ClaimedAt != nil && t.ClaimedAt.Before(now.Add(-lease))
	})
	if !ok {
		return 0, false, nil
	}
	t.Status = domain.TaskStatusProcessing
	t.ClaimedAt = &now
	return t.ID, true, nil
}

// Get implements store.TaskStore.Get
func (s *MemoryTaskStore) Get(ctx context.Context, taskID int64) (*domain.ModerationTask, error) {
	s.record("Get")
	if s.GetFn != nil {
		return s.GetFn(ctx, taskID)
	}
	if t := s.Snapshot(taskID); t != nil {
		return t, nil
	}
	return nil, store.ErrTaskNotFound
}

// MarkCompleted implements store.TaskStore.MarkCompleted
func (s *MemoryTaskStore) MarkCompleted(ctx context.Context, taskID int64, isViolation bool, probability float64) error {
	s.record("MarkCompleted")
	if s.MarkCompletedFn != nil {
		return s.MarkCompletedFn(ctx, taskID, isViolation, probability)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if _, err := t.Complete(isViolation, probability, s.now()); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return nil
}

// MarkFailed implements store.TaskStore.MarkFailed
func (s *MemoryTaskStore) MarkFailed(ctx context.Context, taskID int64, errorMessage string) error {
	s.record("MarkFailed")
	if s.MarkFailedFn != nil {
		return s.MarkFailedFn(ctx, taskID, errorMessage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.Fail(errorMessage, s.now())
	return nil
}

// ListStale implements store.TaskStore.ListStale
func (s *MemoryTaskStore) ListStale(
	ctx context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
	limit int,
) ([]domain.ModerationTask, error) {
	s.record("ListStale")
	if s.ListStaleFn != nil {
		return s.ListStaleFn(ctx, status, olderThan, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-olderThan)
	var out []domain.ModerationTask
	for _, t := range s.tasks {
		if t.Status != status {
			continue
		}
		ref := t.CreatedAt
		if status == domain.TaskStatusProcessing {
			if t.ClaimedAt == nil {
				continue
			}
			ref = *t.ClaimedAt
		}
		if ref.Before(cutoff) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ResetClaim implements store.TaskStore.ResetClaim
func (s *MemoryTaskStore) ResetClaim(ctx context.Context, taskID int64, claimedBefore time.Time) (bool, error) {
	s.record("ResetClaim")
	if s.ResetClaimFn != nil {
		return s.ResetClaimFn(ctx, taskID, claimedBefore)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.Status != domain.TaskStatusProcessing || t.ClaimedAt == nil || !t.ClaimedAt.Before(claimedBefore) {
		return false, nil
	}
	t.Status = domain.TaskStatusPending
	t.ClaimedAt = nil
	return true, nil
}

// MockSweepLocker is a store.SweepLocker. While HeldElsewhere is set, fn is
// never run.
type MockSweepLocker struct {
	mu            sync.Mutex
	HeldElsewhere bool
	Err           error
	Acquired      int
	Skipped       int
}

var _ store.SweepLocker = (*MockSweepLocker)(nil)

// WithLock implements store.SweepLocker.WithLock
func (m *MockSweepLocker) WithLock(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	m.mu.Lock()
	if m.Err != nil {
		m.mu.Unlock()
		return false, m.Err
	}
	if m.HeldElsewhere {
		m.Skipped++
		m.mu.Unlock()
		return false, nil
	}
	m.Acquired++
	m.mu.Unlock()
	return true, fn(ctx)
}
