package postgres

import (
	"context"

	"github.com/example/room-booking/internal/persistence"
)

// RecordCheckIn stores the marker unless one exists and returns the stored row.
func (s *Store) RecordCheckIn(ctx context.Context, checkIn persistence.CheckIn) (persistence.CheckIn, error) {
	if checkIn.BookingID == "" {
		return persistence.CheckIn{}, persistence.ErrConstraintViolation
	}
	const insert = `INSERT INTO check_ins (booking_id, recorded_at) VALUES ($1, $2) ON CONFLICT (booking_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, insert, checkIn.BookingID, checkIn.RecordedAt.UTC()); err != nil {
		return persistence.CheckIn{}, mapError(err)
	}
	return s.GetCheckIn(ctx, checkIn.BookingID)
}

// GetCheckIn returns persistence.ErrNotFound when no marker exists.
func (s *Store) GetCheckIn(ctx context.Context, bookingID string) (persistence.CheckIn, error) {
	if bookingID == "" {
		return persistence.CheckIn{}, persistence.ErrNotFound
	}
	const query = `SELECT booking_id, recorded_at FROM check_ins WHERE booking_id = $1`
	var c persistence.CheckIn
	if err := s.db.QueryRowContext(ctx, query, bookingID).Scan(&c.BookingID, &c.RecordedAt); err != nil {
		return persistence.CheckIn{}, mapError(err)
	}
	c.RecordedAt = c.RecordedAt.UTC()
	return c, nil
}
