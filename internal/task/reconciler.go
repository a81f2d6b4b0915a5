package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/ad-moderation/internal/config"
	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/store"
)

// ReconcilerConfig controls the stale-task sweep.
type ReconcilerConfig struct {
	// Interval between sweeps. Zero disables the reconciler.
	Interval time.Duration

	// StaleAge is how long a task may stay pending, or claimed without a
	// verdict, before the sweep acts on it.
	StaleAge time.Duration

	// BatchSize caps the tasks handled per status per sweep.
	BatchSize int
}

// ReconcilerConfigFrom maps application configuration onto ReconcilerConfig.
func ReconcilerConfigFrom(cfg config.WorkerConfig) ReconcilerConfig {
	return ReconcilerConfig{
		Interval:  cfg.ReconcileInterval(),
		StaleAge:  cfg.StaleTaskAge(),
		BatchSize: 100,
	}
}

// RequestPublisher re-enqueues a moderation request.
type RequestPublisher interface {
	SendModerationRequest(ctx context.Context, itemID int64) error
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Reset       int
	Republished int
	Errors      int

	// Skipped is set when another instance held the sweep lock.
	Skipped bool
}

// Reconciler recovers tasks whose message was lost: claims left behind by a
// crashed worker are reset to pending, and pending tasks that have waited
// too long get a fresh moderation request.
//
// With a lock, only one instance sweeps at a time. The record of recent
// re-publishes is per process, so instances that take turns holding the
// lock may each re-publish a task once per StaleAge.
type Reconciler struct {
	tasks     store.TaskStore
	lock      store.SweepLocker
	publisher RequestPublisher
	config    ReconcilerConfig
	logger    *slog.Logger
	now       func() time.Time

	mu          sync.Mutex
	republished map[int64]time.Time
}

// NewReconciler creates a reconciler. A nil lock sweeps unconditionally.
func NewReconciler(
	tasks store.TaskStore,
	lock store.SweepLocker,
	publisher RequestPublisher,
	cfg ReconcilerConfig,
	logger *slog.Logger,
) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		tasks:       tasks,
		lock:        lock,
		publisher:   publisher,
		config:      cfg,
		logger:      logger.With("component", "reconciler"),
		now:         time.Now,
		republished: make(map[int64]time.Time),
	}
}

// Run sweeps every Interval until ctx is cancelled. It returns immediately
// when the reconciler is disabled.
func (r *Reconciler) Run(ctx context.Context) {
	if r.config.Interval <= 0 {
		r.logger.Info("reconciler disabled")
		return
	}

	r.logger.Info("reconciler started",
		"interval", r.config.Interval.String(),
		"stale_age", r.config.StaleAge.String())

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("reconcile sweep failed", "error", err)
			}
		}
	}
}

// Sweep performs one reconciliation pass.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	if r.lock == nil {
		return r.sweep(ctx)
	}

	var result SweepResult
	acquired, err := r.lock.WithLock(ctx, func(ctx context.Context) error {
		var err error
		result, err = r.sweep(ctx)
		return err
	})
	if err != nil {
		return result, err
	}
	if !acquired {
		r.logger.Debug("sweep skipped, lock held by another instance")
		result.Skipped = true
	}
	return result, nil
}

func (r *Reconciler) sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	stuck, err := r.tasks.ListStale(ctx, domain.TaskStatusProcessing, r.config.StaleAge, r.config.BatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list stale processing tasks: %w", err)
	}
	claimedBefore := r.now().Add(-r.config.StaleAge)
	for _, t := range stuck {
		// The reset is committed before the request goes out, so a worker
		// that receives the request finds the task pending.
		reset, err := r.tasks.ResetClaim(ctx, t.ID, claimedBefore)
		if err != nil {
			result.Errors++
			r.logger.Error("failed to reset stuck task",
				"task_id", t.ID,
				"item_id", t.ItemID,
				"error", err)
			continue
		}
		if !reset {
			continue
		}
		result.Reset++

		// On failure the task is left unmarked; the pending pass below
		// sees it again and retries the publish.
		if err := r.publisher.SendModerationRequest(ctx, t.ItemID); err != nil {
			result.Errors++
			r.logger.Error("failed to republish reset task",
				"task_id", t.ID,
				"item_id", t.ItemID,
				"error", err)
			continue
		}
		r.markRepublished(t.ID)
	}

	waiting, err := r.tasks.ListStale(ctx, domain.TaskStatusPending, r.config.StaleAge, r.config.BatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list stale pending tasks: %w", err)
	}
	for _, t := range waiting {
		if r.recentlyRepublished(t.ID) {
			continue
		}
		if err := r.publisher.SendModerationRequest(ctx, t.ItemID); err != nil {
			result.Errors++
			r.logger.Error("failed to republish pending task",
				"task_id", t.ID,
				"item_id", t.ItemID,
				"error", err)
			continue
		}
		result.Republished++
		r.markRepublished(t.ID)
	}

	r.pruneRepublished()

	if result.Reset > 0 || result.Republished > 0 || result.Errors > 0 {
		r.logger.Info("reconcile sweep finished",
			"reset", result.Reset,
			"republished", result.Republished,
			"errors", result.Errors)
	}
	return result, nil
}

func (r *Reconciler) markRepublished(taskID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.republished[taskID] = r.now()
}

// recentlyRepublished keeps a pending task from being re-enqueued on every
// sweep while its previous request is still queued.
func (r *Reconciler) recentlyRepublished(taskID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.republished[taskID]
	return ok && r.now().Sub(at) < r.config.StaleAge
}

func (r *Reconciler) pruneRepublished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, at := range r.republished {
		if r.now().Sub(at) >= r.config.StaleAge {
			delete(r.republished, id)
		}
	}
}
