// Package bridge adapts persistence repositories to the stores the
// application services depend on.
package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

var (
	_ application.RoomStore       = (*RoomStore)(nil)
	_ application.BookingStore    = (*BookingStore)(nil)
	_ application.CheckInRegistry = (*CheckInRegistry)(nil)
)

// RoomStore adapts a persistence.RoomRepository.
type RoomStore struct {
	repo persistence.RoomRepository
}

// NewRoomStore wraps repo.
func NewRoomStore(repo persistence.RoomRepository) *RoomStore {
	return &RoomStore{repo: repo}
}

func (a *RoomStore) UpsertRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.UpsertRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *RoomStore) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *RoomStore) ListRooms(ctx context.Context) ([]application.Room, error) {
	stored, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.Room, 0, len(stored))
	for _, room := range stored {
		rooms = append(rooms, toApplicationRoom(room))
	}
	return rooms, nil
}

// BookingStore adapts a persistence.BookingRepository. Writes return the row
// as re-read from the repository.
type BookingStore struct {
	repo persistence.BookingRepository
}

// NewBookingStore wraps repo.
func NewBookingStore(repo persistence.BookingRepository) *BookingStore {
	return &BookingStore{repo: repo}
}

func (a *BookingStore) InsertBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.InsertBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	return a.GetBooking(ctx, booking.ID)
}

func (a *BookingStore) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *BookingStore) ListBookingsByUser(ctx context.Context, userID string) ([]application.Booking, error) {
	stored, err := a.repo.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(stored), nil
}

func (a *BookingStore) ListActiveBookings(ctx context.Context, roomID string, start, end time.Time) ([]application.Booking, error) {
	stored, err := a.repo.ListActiveBookings(ctx, roomID, start, end)
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(stored), nil
}

func (a *BookingStore) UpdateBookingInterval(ctx context.Context, id string, start, end, updatedAt time.Time) (application.Booking, error) {
	if err := a.repo.UpdateBookingInterval(ctx, id, start, end, updatedAt); err != nil {
		return application.Booking{}, err
	}
	return a.GetBooking(ctx, id)
}

func (a *BookingStore) SetBookingStatus(ctx context.Context, id string, status application.BookingStatus, updatedAt time.Time) (application.Booking, error) {
	if err := a.repo.SetBookingStatus(ctx, id, string(status), updatedAt); err != nil {
		return application.Booking{}, err
	}
	return a.GetBooking(ctx, id)
}

// CheckInRegistry adapts a persistence.CheckInRepository.
type CheckInRegistry struct {
	repo persistence.CheckInRepository
}

// NewCheckInRegistry wraps repo.
func NewCheckInRegistry(repo persistence.CheckInRepository) *CheckInRegistry {
	return &CheckInRegistry{repo: repo}
}

func (a *CheckInRegistry) Record(ctx context.Context, bookingID string, at, retainUntil time.Time) (application.CheckIn, error) {
	stored, err := a.repo.RecordCheckIn(ctx, persistence.CheckIn{BookingID: bookingID, RecordedAt: at, RetainUntil: retainUntil})
	if err != nil {
		return application.CheckIn{}, err
	}
	return application.CheckIn{BookingID: stored.BookingID, RecordedAt: stored.RecordedAt}, nil
}

func (a *CheckInRegistry) Get(ctx context.Context, bookingID string) (application.CheckIn, bool, error) {
	stored, err := a.repo.GetCheckIn(ctx, bookingID)
	if errors.Is(err, persistence.ErrNotFound) {
		return application.CheckIn{}, false, nil
	}
	if err != nil {
		return application.CheckIn{}, false, err
	}
	return application.CheckIn{BookingID: stored.BookingID, RecordedAt: stored.RecordedAt}, true, nil
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:        room.ID,
		Name:      room.Name,
		Location:  room.Location,
		Capacity:  room.Capacity,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func toApplicationRoom(room persistence.Room) application.Room {
	return application.Room{
		ID:        room.ID,
		Name:      room.Name,
		Location:  room.Location,
		Capacity:  room.Capacity,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func toPersistenceBooking(b application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:        b.ID,
		RoomID:    b.RoomID,
		UserID:    b.UserID,
		Start:     b.Start,
		End:       b.End,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toApplicationBooking(b persistence.Booking) application.Booking {
	return application.Booking{
		ID:        b.ID,
		RoomID:    b.RoomID,
		UserID:    b.UserID,
		Start:     b.Start,
		End:       b.End,
		Status:    application.BookingStatus(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toApplicationBookings(stored []persistence.Booking) []application.Booking {
	bookings := make([]application.Booking, 0, len(stored))
	for _, b := range stored {
		bookings = append(bookings, toApplicationBooking(b))
	}
	return bookings
}
