// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is zero or negative.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidTaskStatus is returned when a task status is not one of the known values.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidProbability is returned when a probability falls outside [0, 1].
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")

	// ErrNegativeImages is returned when an ad reports a negative image count.
	ErrNegativeImages = errors.New("images quantity cannot be negative")
)
