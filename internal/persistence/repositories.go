package persistence

import (
	"context"
	"time"
)

// RoomRepository stores the room catalog.
type RoomRepository interface {
	UpsertRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// BookingRepository stores bookings. Rows are never deleted.
type BookingRepository interface {
	InsertBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	// ListActiveBookings returns active bookings of roomID intersecting [start, end).
	ListActiveBookings(ctx context.Context, roomID string, start, end time.Time) ([]Booking, error)
	UpdateBookingInterval(ctx context.Context, id string, start, end, updatedAt time.Time) error
	SetBookingStatus(ctx context.Context, id string, status string, updatedAt time.Time) error
}

// CheckInRepository stores presence markers. The first write for a booking wins.
type CheckInRepository interface {
	// RecordCheckIn inserts the marker if absent and returns the stored one.
	RecordCheckIn(ctx context.Context, checkIn CheckIn) (CheckIn, error)
	// GetCheckIn returns ErrNotFound when no marker exists.
	GetCheckIn(ctx context.Context, bookingID string) (CheckIn, error)
}

// Store bundles the repositories backed by one database.
type Store interface {
	RoomRepository
	BookingRepository
	CheckInRepository
	Migrate(ctx context.Context) error
	Close() error
}
