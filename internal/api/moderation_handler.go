package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/ad-moderation/internal/api/shared"
	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/platform/logger"
	"github.com/phrazzld/ad-moderation/internal/store"
)

// enqueueFailedMessage is stored on a task whose request never reached the queue.
const enqueueFailedMessage = "failed to enqueue moderation request"

// RequestPublisher publishes moderation requests.
type RequestPublisher interface {
	SendModerationRequest(ctx context.Context, itemID int64) error
}

// ModerationHandler serves the asynchronous moderation endpoints.
type ModerationHandler struct {
	tasks     store.TaskStore
	ads       store.AdStore
	publisher RequestPublisher
	logger    *slog.Logger
}

// NewModerationHandler creates a ModerationHandler.
func NewModerationHandler(
	tasks store.TaskStore,
	ads store.AdStore,
	publisher RequestPublisher,
	logger *slog.Logger,
) *ModerationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModerationHandler{
		tasks:     tasks,
		ads:       ads,
		publisher: publisher,
		logger:    logger.With("component", "moderation_handler"),
	}
}

// AsyncPredict handles POST /async_predict. It records a pending task and
// publishes a moderation request for the worker.
func (h *ModerationHandler) AsyncPredict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContextOrDefault(ctx, h.logger)

	var req AsyncPredictRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if _, err := h.ads.GetWithOwner(ctx, req.ItemID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	taskID, err := h.tasks.CreatePending(ctx, req.ItemID)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("failed to create task: %w", err), "")
		return
	}

	if err := h.publisher.SendModerationRequest(ctx, req.ItemID); err != nil {
		// The task would otherwise stay pending with no message behind it.
		if markErr := h.tasks.MarkFailed(context.WithoutCancel(ctx), taskID, enqueueFailedMessage); markErr != nil {
			log.Error("failed to mark unenqueued task failed",
				"task_id", taskID,
				"error", markErr)
		}
		HandleAPIError(w, r, fmt.Errorf("%w: %w", ErrEnqueueFailed, err), "")
		return
	}

	log.Info("moderation request accepted", "task_id", taskID, "item_id", req.ItemID)
	shared.RespondWithJSON(w, r, http.StatusOK, AsyncPredictResponse{
		TaskID:  taskID,
		Status:  string(domain.TaskStatusPending),
		Message: "Moderation request accepted",
	})
}

// GetResult handles GET /moderation_result/{task_id}.
func (h *ModerationHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "task_id")
	taskID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %q", ErrInvalidTaskID, raw), "")
		return
	}

	task, err := h.tasks.Get(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}
