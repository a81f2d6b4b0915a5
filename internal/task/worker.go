package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/ad-moderation/internal/config"
	"github.com/phrazzld/ad-moderation/internal/platform/logger"
	"github.com/phrazzld/ad-moderation/internal/queue"
	"github.com/phrazzld/ad-moderation/internal/redact"
	"github.com/phrazzld/ad-moderation/internal/scoring"
	"github.com/phrazzld/ad-moderation/internal/store"
	"github.com/sethvargo/go-retry"
)

// WorkerConfig holds the retry policy of the worker.
type WorkerConfig struct {
	// MaxRetries is the total number of attempts per message, including the first.
	MaxRetries int

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration

	// ClaimLease is how long a claim is honored before a redelivered
	// message for the same item may take the task over. Zero selects
	// ClaimLeaseFor(MaxRetries, RetryDelay).
	ClaimLease time.Duration
}

// claimLeaseMargin covers the lookup, scoring and store calls of every
// attempt on top of the pauses between them.
const claimLeaseMargin = 30 * time.Second

// ClaimLeaseFor returns the longest a live worker can hold a claim under the
// given retry policy, plus a margin.
func ClaimLeaseFor(maxRetries int, retryDelay time.Duration) time.Duration {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return time.Duration(maxRetries)*retryDelay + claimLeaseMargin
}

// DefaultWorkerConfig returns 3 attempts 5 seconds apart.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{MaxRetries: 3, RetryDelay: 5 * time.Second}
}

// WorkerConfigFrom maps application configuration onto WorkerConfig.
func WorkerConfigFrom(cfg config.WorkerConfig) WorkerConfig {
	return WorkerConfig{
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
		ClaimLease: ClaimLeaseFor(cfg.MaxRetries, cfg.RetryDelay()),
	}
}

// DeadLetterSender forwards unprocessable messages.
type DeadLetterSender interface {
	SendToDLQ(ctx context.Context, original any, errMsg string, retryCount int) error
}

// Outcome is the terminal result of handling one message.
type Outcome string

// Possible outcomes.
const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeInvalidPayload   Outcome = "invalid_payload"
	OutcomeNoPendingTask    Outcome = "no_pending_task"
	OutcomeAdNotFound       Outcome = "ad_not_found"
	OutcomeRetriesExhausted Outcome = "retries_exhausted"
)

// Worker consumes moderation requests one at a time, resolves each to the
// oldest pending task for its item, scores the ad and records the verdict.
type Worker struct {
	consumer queue.Consumer
	tasks    store.TaskStore
	ads      store.AdStore
	scorer   scoring.Scorer
	dlq      DeadLetterSender
	config   WorkerConfig
	logger   *slog.Logger

	// onRetry is called before each inter-attempt pause.
	onRetry func(attempt int, delay time.Duration, err error)
}

// NewWorker creates a worker. A non-positive MaxRetries is treated as one attempt.
func NewWorker(
	consumer queue.Consumer,
	tasks store.TaskStore,
	ads store.AdStore,
	scorer scoring.Scorer,
	dlq DeadLetterSender,
	cfg WorkerConfig,
	logger *slog.Logger,
) *Worker {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = ClaimLeaseFor(cfg.MaxRetries, cfg.RetryDelay)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		consumer: consumer,
		tasks:    tasks,
		ads:      ads,
		scorer:   scorer,
		dlq:      dlq,
		config:   cfg,
		logger:   logger.With("component", "worker"),
	}
}

// Run pulls and handles messages until ctx is cancelled. The message in
// flight when ctx is cancelled is finished before Run returns. Run returns
// nil on cancellation and an error only when the consumer itself fails.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		"max_retries", w.config.MaxRetries,
		"retry_delay", w.config.RetryDelay.String(),
		"claim_lease", w.config.ClaimLease.String())

	for {
		delivery, err := w.consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker stopping")
				return nil
			}
			w.logger.Error("failed to fetch message", "error", err)
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		w.HandleDelivery(context.WithoutCancel(ctx), delivery)
	}
}

// HandleDelivery processes one delivery to a terminal outcome and commits it.
func (w *Worker) HandleDelivery(ctx context.Context, d queue.Delivery) Outcome {
	outcome := w.Handle(ctx, d.Value)

	if err := d.Commit(ctx); err != nil {
		w.logger.Error("failed to commit message",
			"offset", d.Offset,
			"outcome", outcome,
			"error", err)
	}
	return outcome
}

// attemptState survives across retries of one message so that a task
// claimed on an earlier attempt is not claimed again.
type attemptState struct {
	taskID  int64
	claimed bool
}

// Handle runs the decode, resolve, lookup, score and persist steps for one
// message body, applying the retry policy to transient failures.
func (w *Worker) Handle(ctx context.Context, body []byte) Outcome {
	msg, original, err := queue.DecodeModerationMessage(body)
	if err != nil {
		w.logger.Warn("invalid message payload", "error", err)
		var payload any = queue.RawPayload(body)
		if original != nil {
			payload = original
		}
		w.deadLetter(ctx, payload, err.Error(), 0)
		return OutcomeInvalidPayload
	}

	log := w.logger.With("item_id", msg.ItemID)
	ctx = logger.WithLogger(ctx, log)

	var (
		state    attemptState
		attempts int
		lastErr  error
	)

	backoff := retry.WithMaxRetries(
		uint64(w.config.MaxRetries-1),
		retry.BackoffFunc(func() (time.Duration, bool) {
			if w.onRetry != nil {
				w.onRetry(attempts, w.config.RetryDelay, lastErr)
			}
			log.Warn("retrying message",
				"attempt", attempts,
				"retry_delay", w.config.RetryDelay.String(),
				"error", redact.Error(lastErr))
			return w.config.RetryDelay, false
		}),
	)

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := w.process(ctx, msg.ItemID, &state)
		if err == nil {
			return nil
		}
		lastErr = err

		var domainErr *DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		return retry.RetryableError(err)
	})

	if err == nil {
		log.Info("processed moderation task", "task_id", state.taskID, "attempts", attempts)
		return OutcomeCompleted
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		switch {
		case errors.Is(domainErr, ErrAdNotFound):
			log.Warn("ad not found, failing task", "task_id", state.taskID)
			w.markFailed(ctx, state, domainErr.Message)
			w.deadLetter(ctx, original, domainErr.Message, 1)
			return OutcomeAdNotFound
		default:
			log.Warn("no pending task for message", "attempt", attempts)
			w.deadLetter(ctx, original, domainErr.Message, attempts)
			return OutcomeNoPendingTask
		}
	}

	// err is ctx.Err() if the handling context was cancelled between
	// attempts; lastErr still holds the failure that caused the retry.
	if lastErr == nil {
		lastErr = err
	}
	errMsg := redact.Error(lastErr)
	log.Error("retries exhausted",
		"task_id", state.taskID,
		"attempts", attempts,
		"error", errMsg)
	w.markFailed(ctx, state, errMsg)
	w.deadLetter(ctx, original, errMsg, attempts)
	return OutcomeRetriesExhausted
}

// process is one attempt. It returns a *DomainError for deterministic
// failures and a plain error for anything worth retrying.
func (w *Worker) process(ctx context.Context, itemID int64, state *attemptState) error {
	if !state.claimed {
		taskID, ok, err := w.tasks.ClaimOldestPending(ctx, itemID, w.config.ClaimLease)
		if err != nil {
			return fmt.Errorf("failed to resolve pending task: %w", err)
		}
		if !ok {
			return noPendingTask(itemID)
		}
		state.taskID = taskID
		state.claimed = true
	}

	ad, err := w.ads.GetWithOwner(ctx, itemID)
	if errors.Is(err, store.ErrAdNotFound) {
		return adNotFound(itemID)
	}
	if err != nil {
		return fmt.Errorf("failed to load ad: %w", err)
	}

	prediction, err := w.scorer.Score(ctx, ad.Features())
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	if err := w.tasks.MarkCompleted(ctx, state.taskID, prediction.IsViolation, prediction.Probability); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

func (w *Worker) markFailed(ctx context.Context, state attemptState, errMsg string) {
	if !state.claimed {
		return
	}
	if err := w.tasks.MarkFailed(ctx, state.taskID, errMsg); err != nil {
		logger.FromContextOrDefault(ctx, w.logger).Error("failed to mark task failed",
			"task_id", state.taskID,
			"error", err)
	}
}

// deadLetter never fails the message: a dead-letter publish error is logged
// and the message is still committed.
func (w *Worker) deadLetter(ctx context.Context, original any, errMsg string, retryCount int) {
	if err := w.dlq.SendToDLQ(ctx, original, errMsg, retryCount); err != nil {
		logger.FromContextOrDefault(ctx, w.logger).Error("failed to send message to DLQ",
			"retry_count", retryCount,
			"error", err)
	}
}
