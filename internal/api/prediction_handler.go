package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/ad-moderation/internal/api/shared"
	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/platform/logger"
	"github.com/phrazzld/ad-moderation/internal/scoring"
	"github.com/phrazzld/ad-moderation/internal/store"
)

// PredictionHandler serves synchronous scoring.
type PredictionHandler struct {
	ads    store.AdStore
	scorer scoring.Scorer
	logger *slog.Logger
}

// NewPredictionHandler creates a PredictionHandler.
func NewPredictionHandler(ads store.AdStore, scorer scoring.Scorer, logger *slog.Logger) *PredictionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionHandler{
		ads:    ads,
		scorer: scorer,
		logger: logger.With("component", "prediction_handler"),
	}
}

// Predict handles POST /predict: it scores the ad described in the body.
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("scoring ad",
		"seller_id", *req.SellerID,
		"item_id", *req.ItemID)

	h.score(w, r, req.Features())
}

// SimplePredict handles POST /simple_predict: it looks the ad up by id and
// scores it.
func (h *PredictionHandler) SimplePredict(w http.ResponseWriter, r *http.Request) {
	var req SimplePredictRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	ad, err := h.ads.GetWithOwner(r.Context(), req.ItemID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.score(w, r, ad.Features())
}

func (h *PredictionHandler) score(w http.ResponseWriter, r *http.Request, f domain.Features) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	log.Debug("features",
		"is_verified", f.IsVerifiedSeller,
		"images_qty", f.ImagesQty,
		"description_length", f.DescriptionLength,
		"category", f.Category)

	prediction, err := h.scorer.Score(r.Context(), f)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("prediction",
		"is_violation", prediction.IsViolation,
		"probability", prediction.Probability)
	shared.RespondWithJSON(w, r, http.StatusOK, PredictResponse{
		IsViolation: prediction.IsViolation,
		Probability: prediction.Probability,
	})
}
