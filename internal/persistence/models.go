package persistence

import "time"

// Booking status values stored in the status column.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// Room represents a room catalog entry.
type Room struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Booking represents a stored reservation.
type Booking struct {
	ID        string
	RoomID    string
	UserID    string
	Start     time.Time
	End       time.Time
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CheckIn represents a stored presence marker.
type CheckIn struct {
	BookingID  string
	RecordedAt time.Time
	// RetainUntil is the end of the booking's active window. It is not
	// stored; expiring backends keep the marker at least this long.
	RetainUntil time.Time
}
