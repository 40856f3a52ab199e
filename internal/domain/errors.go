package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidQuality is returned when a recall quality is outside 0..5.
	ErrInvalidQuality = errors.New("quality must be between 0 and 5")

	// ErrInvalidConfidence is returned when a confidence value is outside 0..1.
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")

	// ErrInvalidTimeSpent is returned when a negative response time is supplied.
	ErrInvalidTimeSpent = errors.New("time spent cannot be negative")
)
