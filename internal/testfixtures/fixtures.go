package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

var (
	roomCounter    uint64
	bookingCounter uint64
)

// referenceTime is 09:00 UTC on a Monday; booking scenarios are written against it.
var referenceTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns hh:mm UTC on the reference day.
func At(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}

// RFC3339 formats t the way API clients send timestamps.
func RFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture is a deterministic room catalog entry.
type RoomFixture struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
}

// RoomOption configures a RoomFixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a unique room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		Location:  "Main Office",
		Capacity:  int(4 + idx%4),
		CreatedAt: referenceTime.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the room id.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) { f.ID = id }
}

// WithRoomName overrides the display name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) { f.Name = name }
}

// WithRoomCapacity overrides the seat count.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) { f.Capacity = capacity }
}

// Room101 is the canonical single room used by booking scenarios.
func Room101() RoomFixture {
	return NewRoomFixture(WithRoomID("101"), WithRoomName("Room 101"), WithRoomCapacity(6))
}

// Application returns the fixture as an application.Room.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:        f.ID,
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:        f.ID,
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Input returns the fixture as seed input.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{ID: f.ID, Name: f.Name, Location: f.Location, Capacity: f.Capacity}
}

// --------------------------- Booking fixtures ----------------------------

// BookingFixture is a deterministic booking; by default 09:00 to 10:00 on the reference day.
type BookingFixture struct {
	ID        string
	RoomID    string
	UserID    string
	Start     time.Time
	End       time.Time
	Cancelled bool
	CreatedAt time.Time
}

// BookingOption configures a BookingFixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a unique booking fixture with optional overrides.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	fixture := BookingFixture{
		ID:        fmt.Sprintf("fixture-booking-%03d", idx),
		RoomID:    "101",
		UserID:    "alice",
		Start:     referenceTime,
		End:       referenceTime.Add(time.Hour),
		CreatedAt: referenceTime.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the booking id.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) { f.ID = id }
}

// WithBookingRoom overrides the room.
func WithBookingRoom(roomID string) BookingOption {
	return func(f *BookingFixture) { f.RoomID = roomID }
}

// WithBookingOwner overrides the owning user.
func WithBookingOwner(userID string) BookingOption {
	return func(f *BookingFixture) { f.UserID = userID }
}

// WithBookingWindow overrides the half-open interval.
func WithBookingWindow(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithBookingCancelled marks the fixture as cancelled.
func WithBookingCancelled() BookingOption {
	return func(f *BookingFixture) { f.Cancelled = true }
}

func (f BookingFixture) status() string {
	if f.Cancelled {
		return persistence.StatusCancelled
	}
	return persistence.StatusActive
}

// Application returns the fixture as an application.Booking.
func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:        f.ID,
		RoomID:    f.RoomID,
		UserID:    f.UserID,
		Start:     f.Start,
		End:       f.End,
		Status:    application.BookingStatus(f.status()),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Booking.
func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:        f.ID,
		RoomID:    f.RoomID,
		UserID:    f.UserID,
		Start:     f.Start,
		End:       f.End,
		Status:    f.status(),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Principal returns the owner as an application.Principal.
func (f BookingFixture) Principal() application.Principal {
	return application.Principal{UserID: f.UserID}
}

// Interval returns the fixture window as request input.
func (f BookingFixture) Interval() application.IntervalInput {
	return application.IntervalInput{Start: RFC3339(f.Start), End: RFC3339(f.End)}
}
