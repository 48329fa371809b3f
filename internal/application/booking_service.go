package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// BookingStore captures the durable booking operations used by the service.
type BookingStore interface {
	InsertBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	// ListActiveBookings returns active bookings of roomID whose interval
	// intersects [start, end). Implementations may return a superset.
	ListActiveBookings(ctx context.Context, roomID string, start, end time.Time) ([]Booking, error)
	UpdateBookingInterval(ctx context.Context, id string, start, end, updatedAt time.Time) (Booking, error)
	SetBookingStatus(ctx context.Context, id string, status BookingStatus, updatedAt time.Time) (Booking, error)
}

// RoomLocker serializes check-then-act sequences per room.
type RoomLocker interface {
	// Lock blocks until roomID is held or ctx is done. The returned func
	// releases the lock and is safe to call once.
	Lock(ctx context.Context, roomID string) (func(), error)
}

// BookingServiceConfig tunes parsing and contention handling.
type BookingServiceConfig struct {
	// Location is used for timestamps that carry no zone offset.
	Location *time.Location
	// LockTimeout bounds a single lock acquisition attempt.
	LockTimeout time.Duration
	Retry       RetryConfig
	// AvailabilityConcurrency caps parallel room lookups in ListAvailability.
	AvailabilityConcurrency int
}

// BookingService enforces ownership and non-overlap for bookings.
type BookingService struct {
	rooms       RoomDirectory
	bookings    BookingStore
	locks       RoomLocker
	config      BookingServiceConfig
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService constructs a booking service with default tuning.
func NewBookingService(rooms RoomDirectory, bookings BookingStore, locks RoomLocker, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(rooms, bookings, locks, BookingServiceConfig{}, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with explicit tuning and logger.
func NewBookingServiceWithLogger(rooms RoomDirectory, bookings BookingStore, locks RoomLocker, cfg BookingServiceConfig, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.AvailabilityConcurrency <= 0 {
		cfg.AvailabilityConcurrency = 8
	}
	return &BookingService{
		rooms:       rooms,
		bookings:    bookings,
		locks:       locks,
		config:      cfg,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// ListAvailability reports, for every room, whether [start, end) is free.
func (s *BookingService) ListAvailability(ctx context.Context, input IntervalInput) (result Availability, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListAvailability", "start", input.Start, "end", input.End)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to list availability", err)
			return
		}
		logger.With("room_count", len(result.Rooms)).DebugContext(ctx, "availability listed")
	}()

	var interval scheduler.Interval
	if interval, err = parseInterval(input, s.config.Location); err != nil {
		return
	}

	var rooms []Room
	if rooms, err = listRoomsSorted(ctx, s.rooms); err != nil {
		return
	}

	entries := make([]RoomAvailability, len(rooms))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.config.AvailabilityConcurrency)
	for i, room := range rooms {
		group.Go(func() error {
			existing, listErr := s.bookings.ListActiveBookings(groupCtx, room.ID, interval.Start, interval.End)
			if listErr != nil {
				return fmt.Errorf("room %s: %w", room.ID, listErr)
			}
			entries[i] = RoomAvailability{
				Room:      room,
				Available: !scheduler.Overlaps(toSchedulerBookings(existing), interval),
			}
			return nil
		})
	}
	if err = group.Wait(); err != nil {
		return
	}

	result = Availability{Start: interval.Start, End: interval.End, Rooms: entries}
	return
}

// Create reserves a room for the caller.
func (s *BookingService) Create(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"user_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to create booking", err)
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	if strings.TrimSpace(params.Principal.UserID) == "" {
		err = ErrUnauthorized
		return
	}
	if strings.TrimSpace(params.RoomID) == "" {
		err = ErrRoomNotFound
		return
	}
	if _, err = s.rooms.GetRoom(ctx, params.RoomID); err != nil {
		err = mapRoomRepoError(err)
		return
	}

	var interval scheduler.Interval
	if interval, err = parseInterval(params.Input, s.config.Location); err != nil {
		return
	}

	err = s.withRoomLock(ctx, params.RoomID, func(ctx context.Context) error {
		existing, listErr := s.bookings.ListActiveBookings(ctx, params.RoomID, interval.Start, interval.End)
		if listErr != nil {
			return mapBookingRepoError(listErr)
		}
		if ids := scheduler.Conflicts(toSchedulerBookings(existing), interval, ""); len(ids) > 0 {
			logger.DebugContext(ctx, "interval collides", "conflicting_ids", ids)
			return ErrSlotUnavailable
		}

		now := s.now().UTC()
		stored, insertErr := s.bookings.InsertBooking(ctx, Booking{
			ID:        s.idGenerator(),
			RoomID:    params.RoomID,
			UserID:    params.Principal.UserID,
			Start:     interval.Start,
			End:       interval.End,
			Status:    BookingStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if insertErr != nil {
			return mapBookingRepoError(insertErr)
		}
		booking = stored
		return nil
	})
	return
}

// Update moves the caller's booking to a new interval. The booking may overlap
// its own prior interval.
func (s *BookingService) Update(ctx context.Context, params UpdateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"user_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to update booking", err)
			return
		}
		logger.InfoContext(ctx, "booking updated")
	}()

	var existing Booking
	if existing, err = s.ownedBooking(ctx, params.Principal, params.BookingID); err != nil {
		return
	}
	if !existing.Active() {
		err = ErrBookingNotFound
		return
	}

	var interval scheduler.Interval
	if interval, err = parseInterval(params.Input, s.config.Location); err != nil {
		return
	}

	err = s.withRoomLock(ctx, existing.RoomID, func(ctx context.Context) error {
		current, getErr := s.bookings.GetBooking(ctx, existing.ID)
		if getErr != nil {
			return mapBookingRepoError(getErr)
		}
		if !current.Active() {
			return ErrBookingNotFound
		}

		others, listErr := s.bookings.ListActiveBookings(ctx, current.RoomID, interval.Start, interval.End)
		if listErr != nil {
			return mapBookingRepoError(listErr)
		}
		if ids := scheduler.Conflicts(toSchedulerBookings(others), interval, current.ID); len(ids) > 0 {
			logger.DebugContext(ctx, "interval collides", "conflicting_ids", ids)
			return ErrSlotUnavailable
		}

		updated, updateErr := s.bookings.UpdateBookingInterval(ctx, current.ID, interval.Start, interval.End, s.now().UTC())
		if updateErr != nil {
			return mapBookingRepoError(updateErr)
		}
		booking = updated
		return nil
	})
	return
}

// Cancel soft-deletes the caller's booking. Cancelling twice succeeds.
func (s *BookingService) Cancel(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Cancel",
		"user_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to cancel booking", err)
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	if booking, err = s.ownedBooking(ctx, principal, bookingID); err != nil {
		return
	}
	if !booking.Active() {
		return
	}

	booking, err = s.bookings.SetBookingStatus(ctx, booking.ID, BookingStatusCancelled, s.now().UTC())
	if err != nil {
		err = mapBookingRepoError(err)
		if isTransient(err) {
			err = fmt.Errorf("%w: %v", ErrContention, err)
		}
	}
	return
}

// GetByUser lists every booking owned by the caller, oldest start first.
func (s *BookingService) GetByUser(ctx context.Context, principal Principal) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetByUser", "user_id", principal.UserID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to list bookings", err)
		}
	}()

	if strings.TrimSpace(principal.UserID) == "" {
		err = ErrUnauthorized
		return
	}

	var raw []Booking
	if raw, err = s.bookings.ListBookingsByUser(ctx, principal.UserID); err != nil {
		err = mapBookingRepoError(err)
		return
	}

	bookings = make([]Booking, len(raw))
	copy(bookings, raw)
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].Start.Before(bookings[j].Start)
	})
	return
}

// GetByID returns the stored booking regardless of owner.
func (s *BookingService) GetByID(ctx context.Context, bookingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if strings.TrimSpace(bookingID) == "" {
		return Booking{}, ErrBookingNotFound
	}
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}
	return booking, nil
}

// Get returns the booking when the caller owns it.
func (s *BookingService) Get(ctx context.Context, principal Principal, bookingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	return s.ownedBooking(ctx, principal, bookingID)
}

func (s *BookingService) ownedBooking(ctx context.Context, principal Principal, bookingID string) (Booking, error) {
	booking, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if booking.UserID != principal.UserID {
		return Booking{}, ErrForbidden
	}
	return booking, nil
}

// withRoomLock runs fn while holding the room lock, retrying lock timeouts
// and transient store failures within the configured budget.
func (s *BookingService) withRoomLock(ctx context.Context, roomID string, fn func(context.Context) error) error {
	return withRetry(ctx, s.config.Retry, func() error {
		if s.locks == nil {
			return fn(ctx)
		}

		lockCtx, cancel := ctx, context.CancelFunc(func() {})
		if s.config.LockTimeout > 0 {
			lockCtx, cancel = context.WithTimeout(ctx, s.config.LockTimeout)
		}
		unlock, err := s.locks.Lock(lockCtx, roomID)
		cancel()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return transient(fmt.Errorf("acquire lock for room %s: %w", roomID, err))
		}
		defer unlock()

		return fn(ctx)
	})
}

func toSchedulerBookings(bookings []Booking) []scheduler.Booking {
	out := make([]scheduler.Booking, 0, len(bookings))
	for _, booking := range bookings {
		if !booking.Active() {
			continue
		}
		out = append(out, scheduler.Booking{
			ID:       booking.ID,
			Interval: scheduler.Interval{Start: booking.Start, End: booking.End},
		})
	}
	return out
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrBookingNotFound
	case errors.Is(err, persistence.ErrOverlap):
		return ErrSlotUnavailable
	case errors.Is(err, persistence.ErrRetryable):
		return transient(err)
	}
	return err
}
