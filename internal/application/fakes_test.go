package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

var testBase = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// memoryStore is a thread-safe in-memory RoomStore, BookingStore and CheckInRegistry.
type memoryStore struct {
	mu          sync.Mutex
	rooms       map[string]Room
	bookings    map[string]Booking
	checkins    map[string]CheckIn
	retainUntil map[string]time.Time

	// failStatus, when set, is returned by SetBookingStatus.
	failStatus error
	inserts    int
}

func newMemoryStore(rooms ...Room) *memoryStore {
	s := &memoryStore{
		rooms:       make(map[string]Room),
		bookings:    make(map[string]Booking),
		checkins:    make(map[string]CheckIn),
		retainUntil: make(map[string]time.Time),
	}
	for _, room := range rooms {
		s.rooms[room.ID] = room
	}
	return s
}

func (s *memoryStore) UpsertRoom(_ context.Context, room Room) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rooms[room.ID]; ok {
		room.CreatedAt = existing.CreatedAt
	}
	s.rooms[room.ID] = room
	return room, nil
}

func (s *memoryStore) GetRoom(_ context.Context, id string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (s *memoryStore) ListRooms(context.Context) ([]Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *memoryStore) InsertBooking(_ context.Context, booking Booking) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[booking.ID]; ok {
		return Booking{}, persistence.ErrDuplicate
	}
	s.bookings[booking.ID] = booking
	s.inserts++
	return booking, nil
}

func (s *memoryStore) GetBooking(_ context.Context, id string) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[id]
	if !ok {
		return Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

func (s *memoryStore) ListBookingsByUser(_ context.Context, userID string) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	// Unordered on purpose so the service sort is exercised.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memoryStore) ListActiveBookings(_ context.Context, roomID string, start, end time.Time) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.Active() && b.Start.Before(end) && start.Before(b.End) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memoryStore) UpdateBookingInterval(_ context.Context, id string, start, end, updatedAt time.Time) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, persistence.ErrNotFound
	}
	b.Start, b.End, b.UpdatedAt = start, end, updatedAt
	s.bookings[id] = b
	return b, nil
}

func (s *memoryStore) SetBookingStatus(_ context.Context, id string, status BookingStatus, updatedAt time.Time) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failStatus != nil {
		return Booking{}, s.failStatus
	}
	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, persistence.ErrNotFound
	}
	b.Status, b.UpdatedAt = status, updatedAt
	s.bookings[id] = b
	return b, nil
}

func (s *memoryStore) Record(_ context.Context, bookingID string, at, retainUntil time.Time) (CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.checkins[bookingID]; ok {
		return existing, nil
	}
	s.retainUntil[bookingID] = retainUntil
	record := CheckIn{BookingID: bookingID, RecordedAt: at}
	s.checkins[bookingID] = record
	return record, nil
}

func (s *memoryStore) Get(_ context.Context, bookingID string) (CheckIn, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.checkins[bookingID]
	return record, ok, nil
}

// mutexLocker is a process-wide lock that ignores the room id.
type mutexLocker struct {
	ch chan struct{}
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{ch: make(chan struct{}, 1)}
}

func (l *mutexLocker) Lock(ctx context.Context, _ string) (func(), error) {
	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-l.ch }) }, nil
}

// stuckLocker never grants the lock.
type stuckLocker struct{}

func (stuckLocker) Lock(ctx context.Context, _ string) (func(), error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func sequenceIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%02d", prefix, n)
	}
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func testRooms() []Room {
	return []Room{
		{ID: "101", Name: "Room 101", Location: "Floor 1", Capacity: 4},
		{ID: "102", Name: "Room 102", Location: "Floor 1", Capacity: 8},
	}
}

func newTestBookingService(store *memoryStore, clock *fixedClock) *BookingService {
	return NewBookingServiceWithLogger(store, store, newMutexLocker(), BookingServiceConfig{
		LockTimeout: 50 * time.Millisecond,
		Retry:       fastRetry(),
	}, sequenceIDs("b"), clock.Now, nil)
}
