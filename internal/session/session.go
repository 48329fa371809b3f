// Package session provides the live session rooms behind admitted bookings.
package session

import (
	"context"
	"strings"
	"sync"
)

// RoomName derives the session room id for a booking.
func RoomName(bookingID string) string {
	return "booking-" + strings.TrimSpace(bookingID)
}

// Local records created rooms in memory. It is used when no media server is
// configured and in tests.
type Local struct {
	mu    sync.Mutex
	rooms map[string]struct{}
}

// NewLocal creates an empty provider.
func NewLocal() *Local {
	return &Local{rooms: make(map[string]struct{})}
}

// EnsureSessionRoom registers the room for bookingID once.
func (l *Local) EnsureSessionRoom(ctx context.Context, bookingID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := RoomName(bookingID)
	l.mu.Lock()
	l.rooms[name] = struct{}{}
	l.mu.Unlock()
	return name, nil
}

// SessionRoomID derives the id without creating anything.
func (l *Local) SessionRoomID(bookingID string) string {
	return RoomName(bookingID)
}

// Created reports whether the room for bookingID exists.
func (l *Local) Created(bookingID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.rooms[RoomName(bookingID)]
	return ok
}
