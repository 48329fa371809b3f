package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/roomlock"
	"github.com/example/room-booking/internal/session"
)

// ServiceFactory builds application services over a SQLiteHarness with a
// shared clock and id sequence.
type ServiceFactory struct {
	Harness     *SQLiteHarness
	Clock       *Clock
	IDGenerator *IDGenerator
	Locks       application.RoomLocker
	Gateway     *session.Local
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory wires defaults: an in-process room lock and a local session provider.
func NewServiceFactory(harness *SQLiteHarness, opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Harness:     harness,
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("booking"),
		Locks:       roomlock.NewLocal(),
		Gateway:     session.NewLocal(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithLocker overrides the room locker; nil disables locking.
func WithLocker(locks application.RoomLocker) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Locks = locks
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// RoomService builds a room service over the harness.
func (f *ServiceFactory) RoomService() *application.RoomService {
	return application.NewRoomServiceWithLogger(f.Harness.Rooms, f.Clock.NowFunc(), f.Logger)
}

// BookingService builds a booking service with a generous lock timeout.
func (f *ServiceFactory) BookingService() *application.BookingService {
	return application.NewBookingServiceWithLogger(
		f.Harness.Rooms,
		f.Harness.Bookings,
		f.Locks,
		application.BookingServiceConfig{
			LockTimeout: 2 * time.Second,
			Retry: application.RetryConfig{
				MaxRetries:    5,
				InitialDelay:  5 * time.Millisecond,
				MaxDelay:      50 * time.Millisecond,
				BackoffFactor: 2,
			},
		},
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// CheckInService builds a check-in service over the harness registry.
func (f *ServiceFactory) CheckInService() *application.CheckInService {
	return application.NewCheckInServiceWithLogger(f.Harness.Bookings, f.Harness.CheckIns, f.Clock.NowFunc(), f.Logger)
}

// AdmissionService builds an admission service over the harness and local gateway.
func (f *ServiceFactory) AdmissionService() *application.AdmissionService {
	return application.NewAdmissionServiceWithLogger(
		f.Harness.Bookings,
		f.Harness.CheckIns,
		f.Gateway,
		f.Clock.NowFunc(),
		time.Second,
		f.Logger,
	)
}
