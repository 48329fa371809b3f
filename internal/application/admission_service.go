package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/example/room-booking/internal/scheduler"
)

// SessionGateway is the opaque session provider.
type SessionGateway interface {
	// EnsureSessionRoom creates the session room for bookingID if needed and
	// returns its id. Calling it again returns the same id.
	EnsureSessionRoom(ctx context.Context, bookingID string) (string, error)
	// SessionRoomID derives the room id without contacting the provider.
	SessionRoomID(bookingID string) string
}

// DefaultPollInterval is the refresh cadence suggested to polling clients.
const DefaultPollInterval = 3 * time.Second

// DefaultSessionTimeout bounds a shared session provider call.
const DefaultSessionTimeout = 15 * time.Second

// AdmissionService decides whether a booking's live session may start.
type AdmissionService struct {
	bookings     BookingReader
	checkins     CheckInRegistry
	gateway      SessionGateway
	now          func() time.Time
	pollInterval time.Duration
	logger       *slog.Logger
	inflight     singleflight.Group

	// sessionTimeout bounds the provider call shared by concurrent starters.
	sessionTimeout time.Duration
}

// NewAdmissionService constructs an admission service.
func NewAdmissionService(bookings BookingReader, checkins CheckInRegistry, gateway SessionGateway, now func() time.Time) *AdmissionService {
	return NewAdmissionServiceWithLogger(bookings, checkins, gateway, now, DefaultPollInterval, nil)
}

// NewAdmissionServiceWithLogger constructs an admission service with a poll hint and logger.
func NewAdmissionServiceWithLogger(bookings BookingReader, checkins CheckInRegistry, gateway SessionGateway, now func() time.Time, pollInterval time.Duration, logger *slog.Logger) *AdmissionService {
	if now == nil {
		now = time.Now
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &AdmissionService{
		bookings:       bookings,
		checkins:       checkins,
		gateway:        gateway,
		now:            now,
		pollInterval:   pollInterval,
		logger:         defaultLogger(logger),
		sessionTimeout: DefaultSessionTimeout,
	}
}

// PollInterval returns the refresh cadence suggested to clients.
func (s *AdmissionService) PollInterval() time.Duration {
	if s == nil {
		return DefaultPollInterval
	}
	return s.pollInterval
}

func (s *AdmissionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AdmissionService", operation, attrs...)
}

// Evaluate computes the admission state for the booking owner.
func (s *AdmissionService) Evaluate(ctx context.Context, principal Principal, bookingID string) (AdmissionState, error) {
	if s == nil {
		return AdmissionState{}, fmt.Errorf("AdmissionService is nil")
	}
	booking, err := s.ownedBooking(ctx, principal, bookingID)
	if err != nil {
		s.loggerWith(ctx, "Evaluate", "user_id", principal.UserID, "booking_id", bookingID).
			DebugContext(ctx, "admission denied", "error", err, "error_kind", ErrorKind(err))
		return AdmissionState{}, err
	}
	return s.evaluate(ctx, booking)
}

// StartSession ensures the session room exists once the booking is admitted.
// Concurrent calls for one booking share a single provider call.
func (s *AdmissionService) StartSession(ctx context.Context, principal Principal, bookingID string) (result SessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("AdmissionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "StartSession", "user_id", principal.UserID, "booking_id", bookingID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to start session", err)
			return
		}
		logger.With("session_room_id", result.SessionRoomID).InfoContext(ctx, "session ready")
	}()

	var booking Booking
	if booking, err = s.ownedBooking(ctx, principal, bookingID); err != nil {
		return
	}

	var state AdmissionState
	if state, err = s.evaluate(ctx, booking); err != nil {
		return
	}
	if !state.Admitted {
		err = fmt.Errorf("%w: time_active=%t checked_in=%t", ErrNotAdmitted, state.TimeActive, state.CheckedIn)
		return
	}
	if s.gateway == nil {
		err = fmt.Errorf("%w: no session provider configured", ErrSessionProviderUnavailable)
		return
	}

	// The call outlives any single caller; only the timeout ends it.
	value, callErr, shared := s.inflight.Do(booking.ID, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sessionTimeout)
		defer cancel()
		return s.gateway.EnsureSessionRoom(callCtx, booking.ID)
	})
	if callErr != nil {
		err = fmt.Errorf("%w: %v", ErrSessionProviderUnavailable, callErr)
		return
	}
	if shared {
		logger.DebugContext(ctx, "joined in-flight session request")
	}

	result = SessionResult{BookingID: booking.ID, SessionRoomID: value.(string)}
	return
}

// GuestStatus exposes the admission state to participants. No ownership is
// required and the session room is never created here.
func (s *AdmissionService) GuestStatus(ctx context.Context, bookingID string) (GuestStatus, error) {
	if s == nil {
		return GuestStatus{}, fmt.Errorf("AdmissionService is nil")
	}
	booking, err := s.booking(ctx, bookingID)
	if err != nil {
		return GuestStatus{}, err
	}

	state, err := s.evaluate(ctx, booking)
	if err != nil {
		return GuestStatus{}, err
	}

	status := GuestStatus{AdmissionState: state}
	if state.Admitted && s.gateway != nil {
		status.SessionRoomID = s.gateway.SessionRoomID(booking.ID)
	}
	return status, nil
}

func (s *AdmissionService) evaluate(ctx context.Context, booking Booking) (AdmissionState, error) {
	now := s.now().UTC()
	state := AdmissionState{BookingID: booking.ID, EvaluatedAt: now}

	window := scheduler.Interval{Start: booking.Start, End: booking.End}
	state.TimeActive = booking.Active() && window.Contains(now)

	if s.checkins != nil {
		_, ok, err := lookupCheckIn(ctx, s.checkins, booking.ID)
		if err != nil {
			return AdmissionState{}, fmt.Errorf("read check-in: %w", err)
		}
		state.CheckedIn = ok
	}

	state.Admitted = state.TimeActive && state.CheckedIn
	return state, nil
}

func (s *AdmissionService) booking(ctx context.Context, bookingID string) (Booking, error) {
	if s.bookings == nil || strings.TrimSpace(bookingID) == "" {
		return Booking{}, ErrBookingNotFound
	}
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}
	return booking, nil
}

func (s *AdmissionService) ownedBooking(ctx context.Context, principal Principal, bookingID string) (Booking, error) {
	booking, err := s.booking(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if booking.UserID != principal.UserID {
		return Booking{}, ErrForbidden
	}
	return booking, nil
}
