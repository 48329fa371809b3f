package application

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimestamp is returned when a timestamp cannot be parsed.
	ErrInvalidTimestamp = errors.New("application: invalid timestamp")
	// ErrInvalidInterval is returned when start is not strictly before end.
	ErrInvalidInterval = errors.New("application: start must be before end")
	// ErrRoomNotFound is returned when the requested room does not exist.
	ErrRoomNotFound = errors.New("application: room not found")
	// ErrBookingNotFound is returned when the requested booking does not exist.
	ErrBookingNotFound = errors.New("application: booking not found")
	// ErrForbidden is returned when the caller does not own the booking.
	ErrForbidden = errors.New("application: forbidden")
	// ErrSlotUnavailable is returned when the interval collides with another active booking.
	ErrSlotUnavailable = errors.New("application: slot unavailable")
	// ErrNotAdmitted is returned when a session is started before the booking is live and checked in.
	ErrNotAdmitted = errors.New("application: session not admitted")
	// ErrSessionProviderUnavailable is returned when the session provider fails.
	ErrSessionProviderUnavailable = errors.New("application: session provider unavailable")
	// ErrContention is returned when the room stays contended after bounded retries.
	ErrContention = errors.New("application: room busy, retry later")
	// ErrUnauthorized is returned when a caller identity or credential is missing or wrong.
	ErrUnauthorized = errors.New("application: unauthorized")
)

// TimestampError records which field failed to parse.
type TimestampError struct {
	Field string
	Value string
	Err   error
}

func (e *TimestampError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %q is not a valid timestamp", e.Field, e.Value)
}

func (e *TimestampError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match ErrInvalidTimestamp.
func (e *TimestampError) Is(target error) bool {
	return target == ErrInvalidTimestamp
}
