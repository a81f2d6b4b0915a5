package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/ad-moderation/internal/api/shared"
	"github.com/phrazzld/ad-moderation/internal/config"
	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/mocks"
	"github.com/phrazzld/ad-moderation/internal/platform/logger"
	"github.com/phrazzld/ad-moderation/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const predictBody = `{
	"seller_id": 1,
	"is_verified_seller": false,
	"item_id": 1,
	"name": "Item",
	"description": "Desc",
	"category": 1,
	"images_qty": 0
}`

func newPredictionRouter(t *testing.T, ads *mocks.MemoryAdStore, scorer scoring.Scorer) http.Handler {
	t.Helper()
	log, _ := logger.NewTestLogger(t)
	h := NewPredictionHandler(ads, scorer, log)
	r := chi.NewRouter()
	r.Post("/predict", h.Predict)
	r.Post("/simple_predict", h.SimplePredict)
	return r
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return w
}

func TestPredict(t *testing.T) {
	scorer := &mocks.TestifyMockScorer{}
	scorer.On("Score", mock.Anything, domain.Features{
		IsVerifiedSeller:  false,
		ImagesQty:         0,
		DescriptionLength: 4,
		Category:          1,
	}).Return(domain.Prediction{IsViolation: true, Probability: 0.73}, nil)

	w := post(newPredictionRouter(t, mocks.NewMemoryAdStore(), scorer), "/predict", predictBody)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"is_violation":true,"probability":0.73}`, w.Body.String())
	scorer.AssertExpectations(t)
}

func TestPredict_WithModel(t *testing.T) {
	model := &scoring.Model{Weights: []float64{-3, -2, 0.1, 0.1}, Bias: 1}
	router := newPredictionRouter(t, mocks.NewMemoryAdStore(), scoring.NewManagerWithModel(model, 0.5))

	unverified := decodeBody[PredictResponse](t, post(router, "/predict", predictBody))
	verified := decodeBody[PredictResponse](t, post(router, "/predict",
		strings.Replace(predictBody, `"is_verified_seller": false`, `"is_verified_seller": true`, 1)))

	assert.True(t, unverified.IsViolation)
	assert.False(t, verified.IsViolation)
	assert.Greater(t, unverified.Probability, verified.Probability)
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		scorer     scoring.Scorer
		wantStatus int
		wantDetail string
	}{
		{
			name:       "wrong type",
			body:       strings.Replace(predictBody, `false`, `"not_a_bool"`, 1),
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "is_verified_seller must be a boolean",
		},
		{
			name:       "missing field",
			body:       strings.Replace(predictBody, `"is_verified_seller": false,`, ``, 1),
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "Invalid is_verified_seller: required field",
		},
		{
			name:       "malformed",
			body:       `{"seller_id": 1`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative images",
			body:       strings.Replace(predictBody, `"images_qty": 0`, `"images_qty": -2`, 1),
			scorer:     scoring.NewManagerWithModel(&scoring.Model{Weights: make([]float64, scoring.NumFeatures)}, 0.5),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "model not loaded",
			body:       predictBody,
			scorer:     scoring.NewManager(config.ModelConfig{Path: "model.json", Threshold: 0.5}, nil),
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "Model service is not available",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scorer := tc.scorer
			if scorer == nil {
				scorer = &mocks.MockScorer{}
			}

			w := post(newPredictionRouter(t, mocks.NewMemoryAdStore(), scorer), "/predict", tc.body)

			assert.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			if tc.wantDetail != "" {
				assert.Equal(t, tc.wantDetail, decodeBody[shared.ErrorResponse](t, w).Detail)
			}
		})
	}
}

func TestSimplePredict(t *testing.T) {
	ads := mocks.NewMemoryAdStore()
	ads.AddAd(domain.Ad{ID: 9, Description: "камера", Category: 4, ImagesQty: 12}, true)
	scorer := &mocks.MockScorer{Prediction: domain.Prediction{Probability: 0.12}}
	router := newPredictionRouter(t, ads, scorer)

	w := post(router, "/simple_predict", `{"item_id": 9}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"is_violation":false,"probability":0.12}`, w.Body.String())
	require.Len(t, scorer.Calls(), 1)
	assert.Equal(t, domain.Features{
		IsVerifiedSeller:  true,
		ImagesQty:         12,
		DescriptionLength: 6,
		Category:          4,
	}, scorer.Calls()[0])

	assert.Equal(t, http.StatusNotFound, post(router, "/simple_predict", `{"item_id": 10}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, post(router, "/simple_predict", `{"item_id": 0}`).Code)
}

func TestSimplePredict_ScorerError(t *testing.T) {
	ads := mocks.NewMemoryAdStore()
	ads.AddAd(domain.Ad{ID: 9}, true)
	scorer := &mocks.MockScorer{ScoreFn: func(context.Context, domain.Features) (domain.Prediction, error) {
		return domain.Prediction{}, assert.AnError
	}}

	w := post(newPredictionRouter(t, ads, scorer), "/simple_predict", `{"item_id": 9}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
