package application

import "time"

// Principal represents the identity invoking a service method.
type Principal struct {
	UserID string
}

// Room represents a catalog entry for a physical room.
type Room struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingStatus is the closed set of booking lifecycle states.
type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a reservation of one room by one user for a half-open interval.
type Booking struct {
	ID        string
	RoomID    string
	UserID    string
	Start     time.Time
	End       time.Time
	Status    BookingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the booking takes part in overlap checks.
func (b Booking) Active() bool {
	return b.Status == BookingStatusActive
}

// CheckIn is the presence marker written once per arrival.
type CheckIn struct {
	BookingID  string
	RecordedAt time.Time
}

// AdmissionState is derived on every query and never stored.
type AdmissionState struct {
	BookingID   string
	TimeActive  bool
	CheckedIn   bool
	Admitted    bool
	EvaluatedAt time.Time
}

// GuestStatus is the admission view exposed to participants who do not own the booking.
type GuestStatus struct {
	AdmissionState
	SessionRoomID string
}

// RoomAvailability pairs a room with its free/busy state for a queried interval.
type RoomAvailability struct {
	Room      Room
	Available bool
}

// Availability is the result of an availability query.
type Availability struct {
	Start time.Time
	End   time.Time
	Rooms []RoomAvailability
}

// IntervalInput captures caller supplied timestamps before parsing.
type IntervalInput struct {
	Start string
	End   string
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	RoomID    string
	Input     IntervalInput
}

// UpdateBookingParams wraps the data required to move an existing booking.
type UpdateBookingParams struct {
	Principal Principal
	BookingID string
	Input     IntervalInput
}

// SessionResult is returned by StartSession.
type SessionResult struct {
	BookingID     string
	SessionRoomID string
}
