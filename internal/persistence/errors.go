package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist or is
	// past its retention window.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when an insert collides with an existing record.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a write violates a schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrUnavailable is returned when the underlying store cannot be reached.
	// Callers treat it as retryable.
	ErrUnavailable = errors.New("persistence: store unavailable")
)
