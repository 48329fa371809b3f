package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record with the same key already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a row breaks a schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrOverlap is returned when the store rejects two intersecting active bookings.
	ErrOverlap = errors.New("persistence: booking overlap")
	// ErrRetryable is returned for transient lock or serialization failures.
	ErrRetryable = errors.New("persistence: transient failure")
)
