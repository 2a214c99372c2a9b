package application

import "errors"

var (
	// ErrUnauthorized is returned when the caller's claim lacks the admin capability.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested alert is unknown or past its
	// retention window.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a record collides with an existing one.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrStoreUnavailable is returned when the persistence layer cannot be
	// reached. Mutations surfacing it are safe to retry.
	ErrStoreUnavailable = errors.New("application: store unavailable")
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token has expired.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token was revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
