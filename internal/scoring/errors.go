package scoring

import "errors"

var (
	// ErrModelNotLoaded is returned when scoring before Initialize succeeded.
	ErrModelNotLoaded = errors.New("model is not loaded")

	// ErrInvalidModel is returned for a model file with the wrong shape or
	// non-finite parameters.
	ErrInvalidModel = errors.New("invalid model")

	// ErrInvalidFeatures is returned for features outside their domain.
	ErrInvalidFeatures = errors.New("invalid features")
)
