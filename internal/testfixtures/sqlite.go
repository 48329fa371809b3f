package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/room-booking/internal/persistence/bridge"
	"github.com/example/room-booking/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated throwaway SQLite database with the
// application-facing adapters already wired over it.
type SQLiteHarness struct {
	Store    *sqlite.Store
	Rooms    *bridge.RoomStore
	Bookings *bridge.BookingStore
	CheckIns *bridge.CheckInRegistry

	cleanup func()
}

// Close releases the database. It is also registered with tb.Cleanup.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a database file under tb.TempDir.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	path := filepath.Join(tb.TempDir(), "bookings.db")

	store, err := sqlite.Open(ctx, sqlite.TestConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:    store,
		Rooms:    bridge.NewRoomStore(store),
		Bookings: bridge.NewBookingStore(store),
		CheckIns: bridge.NewCheckInRegistry(store),
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// SeedRooms writes the fixtures straight into the store.
func (h *SQLiteHarness) SeedRooms(tb testing.TB, rooms ...RoomFixture) {
	tb.Helper()
	for _, room := range rooms {
		if err := h.Store.UpsertRoom(context.Background(), room.Persistence()); err != nil {
			tb.Fatalf("seed room %s: %v", room.ID, err)
		}
	}
}

// SeedBookings writes the fixtures straight into the store, bypassing the service.
func (h *SQLiteHarness) SeedBookings(tb testing.TB, bookings ...BookingFixture) {
	tb.Helper()
	for _, booking := range bookings {
		if err := h.Store.InsertBooking(context.Background(), booking.Persistence()); err != nil {
			tb.Fatalf("seed booking %s: %v", booking.ID, err)
		}
	}
}
