package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// CheckInRegistry stores presence markers keyed by booking id.
type CheckInRegistry interface {
	// Record stores a marker unless one exists and returns the stored marker.
	// The marker must survive at least until retainUntil.
	Record(ctx context.Context, bookingID string, at, retainUntil time.Time) (CheckIn, error)
	// Get reports the marker for bookingID, if any.
	Get(ctx context.Context, bookingID string) (CheckIn, bool, error)
}

// BookingReader is the read-only slice of BookingStore.
type BookingReader interface {
	GetBooking(ctx context.Context, id string) (Booking, error)
}

// CheckInService records badge events for existing bookings.
type CheckInService struct {
	bookings BookingReader
	registry CheckInRegistry
	now      func() time.Time
	logger   *slog.Logger
}

// NewCheckInService constructs a check-in service.
func NewCheckInService(bookings BookingReader, registry CheckInRegistry, now func() time.Time) *CheckInService {
	return NewCheckInServiceWithLogger(bookings, registry, now, nil)
}

// NewCheckInServiceWithLogger constructs a check-in service with a specified logger.
func NewCheckInServiceWithLogger(bookings BookingReader, registry CheckInRegistry, now func() time.Time, logger *slog.Logger) *CheckInService {
	if now == nil {
		now = time.Now
	}
	return &CheckInService{bookings: bookings, registry: registry, now: now, logger: defaultLogger(logger)}
}

// Record marks the booking as checked in. Repeated calls keep the first timestamp.
func (s *CheckInService) Record(ctx context.Context, bookingID string) (record CheckIn, err error) {
	if s == nil {
		err = fmt.Errorf("CheckInService is nil")
		return
	}
	if s.registry == nil {
		err = fmt.Errorf("check-in registry not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "CheckInService", "Record", "booking_id", bookingID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to record check-in", err)
			return
		}
		logger.With("recorded_at", record.RecordedAt).InfoContext(ctx, "check-in recorded")
	}()

	if strings.TrimSpace(bookingID) == "" {
		err = ErrBookingNotFound
		return
	}
	var retainUntil time.Time
	if s.bookings != nil {
		var booking Booking
		if booking, err = s.bookings.GetBooking(ctx, bookingID); err != nil {
			err = mapBookingRepoError(err)
			return
		}
		retainUntil = booking.End
	}

	record, err = s.registry.Record(ctx, bookingID, s.now().UTC(), retainUntil)
	return
}

// Get returns the marker for bookingID, if one was recorded.
func (s *CheckInService) Get(ctx context.Context, bookingID string) (CheckIn, bool, error) {
	if s == nil {
		return CheckIn{}, false, fmt.Errorf("CheckInService is nil")
	}
	if s.registry == nil {
		return CheckIn{}, false, nil
	}
	return lookupCheckIn(ctx, s.registry, bookingID)
}

func lookupCheckIn(ctx context.Context, registry CheckInRegistry, bookingID string) (CheckIn, bool, error) {
	record, ok, err := registry.Get(ctx, bookingID)
	if errors.Is(err, persistence.ErrNotFound) {
		return CheckIn{}, false, nil
	}
	if err != nil {
		return CheckIn{}, false, err
	}
	return record, ok, nil
}
