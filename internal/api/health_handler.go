package api

import (
	"net/http"

	"github.com/phrazzld/ad-moderation/internal/api/shared"
)

// ModelStatus reports whether the scoring model is ready.
type ModelStatus interface {
	Loaded() bool
}

// HealthHandler serves the liveness and welcome endpoints.
type HealthHandler struct {
	model ModelStatus
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(model ModelStatus) *HealthHandler {
	return &HealthHandler{model: model}
}

// Health handles GET /health. It answers 503 until the model is loaded.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.model == nil || !h.model.Loaded() {
		shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "healthy", ModelLoaded: true})
}

// Root handles GET /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Welcome to Ad Moderation Service API"})
}
