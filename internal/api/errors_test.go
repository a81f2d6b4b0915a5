package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/ad-moderation/internal/api/shared"
	"github.com/phrazzld/ad-moderation/internal/scoring"
	"github.com/phrazzld/ad-moderation/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", shared.ErrMalformedJSON), http.StatusBadRequest},
		{fmt.Errorf("%w: x", shared.ErrInvalidField), http.StatusUnprocessableEntity},
		{ErrInvalidTaskID, http.StatusBadRequest},
		{fmt.Errorf("%w: negative", scoring.ErrInvalidFeatures), http.StatusBadRequest},
		{store.ErrAdNotFound, http.StatusNotFound},
		{fmt.Errorf("lookup: %w", store.ErrTaskNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: %w", ErrEnqueueFailed, errors.New("broker")), http.StatusServiceUnavailable},
		{scoring.ErrModelNotLoaded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "Ad not found", GetSafeErrorMessage(store.ErrAdNotFound))
	assert.Equal(t, "Task not found", GetSafeErrorMessage(store.ErrTaskNotFound))
	assert.Equal(t, "An unexpected error occurred",
		GetSafeErrorMessage(errors.New("pq: password authentication failed for user admin")))
	assert.Equal(t, "Moderation queue is unavailable",
		GetSafeErrorMessage(fmt.Errorf("%w: dial tcp 10.1.1.1:9092", ErrEnqueueFailed)))
}

func TestSanitizeValidationError(t *testing.T) {
	err := shared.ValidateRequest(AsyncPredictRequest{ItemID: 0})

	assert.Equal(t, http.StatusUnprocessableEntity, MapErrorToStatusCode(err))
	assert.Equal(t, "Invalid item_id: must be greater than 0", GetSafeErrorMessage(err))
	assert.Equal(t, "Validation error", SanitizeValidationError(nil))
}
