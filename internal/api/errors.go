package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/ad-moderation/internal/api/shared"
	"github.com/phrazzld/ad-moderation/internal/domain"
	"github.com/phrazzld/ad-moderation/internal/scoring"
	"github.com/phrazzld/ad-moderation/internal/store"
)

// ErrEnqueueFailed means a moderation request could not be published.
var ErrEnqueueFailed = errors.New("failed to enqueue moderation request")

// ErrInvalidTaskID means the task_id path parameter is not an integer.
var ErrInvalidTaskID = errors.New("invalid task id")

// MapErrorToStatusCode maps internal errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrMalformedJSON),
		errors.Is(err, ErrInvalidTaskID),
		errors.Is(err, scoring.ErrInvalidFeatures):
		return http.StatusBadRequest

	case errors.Is(err, shared.ErrInvalidField),
		errors.Is(err, domain.ErrValidation),
		errors.As(err, &validationErrs):
		return http.StatusUnprocessableEntity

	case errors.Is(err, store.ErrAdNotFound),
		errors.Is(err, store.ErrTaskNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrEnqueueFailed),
		errors.Is(err, scoring.ErrModelNotLoaded):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that reveals
// nothing about internals.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)
	case errors.Is(err, shared.ErrMalformedJSON):
		return "Invalid request format"
	case errors.Is(err, shared.ErrInvalidField):
		// The decoder's message names only the field and expected type.
		return strings.TrimPrefix(err.Error(), shared.ErrInvalidField.Error()+": ")
	case errors.Is(err, ErrInvalidTaskID):
		return "task_id must be an integer"
	case errors.Is(err, scoring.ErrInvalidFeatures):
		return "Invalid ad features"
	case errors.Is(err, store.ErrAdNotFound):
		return "Ad not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, ErrEnqueueFailed):
		return "Moderation queue is unavailable"
	case errors.Is(err, scoring.ErrModelNotLoaded):
		return "Model service is not available"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError describes the first failed field by its JSON name.
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}
	fe := errs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag(), fe.Param()))
}

func validationTagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required field"
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be at least " + param
	case "min":
		return "too short"
	case "max":
		return "too long"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted error. A non-empty message overrides the default safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}

	var opts []shared.ResponseOption
	if status == http.StatusNotFound {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
