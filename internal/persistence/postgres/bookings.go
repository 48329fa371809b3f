package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

const bookingColumns = `id, room_id, user_id, start_time, end_time, status, created_at, updated_at`

// InsertBooking stores a new booking. The exclusion constraint rejects overlaps.
func (s *Store) InsertBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" || !booking.Start.Before(booking.End) {
		return persistence.ErrConstraintViolation
	}
	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, query,
		booking.ID,
		booking.RoomID,
		booking.UserID,
		booking.Start.UTC(),
		booking.End.UTC(),
		booking.Status,
		booking.CreatedAt.UTC(),
		booking.UpdatedAt.UTC(),
	)
	return mapError(err)
}

// GetBooking retrieves a booking by id regardless of status.
func (s *Store) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	booking, err := scanBooking(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return booking, nil
}

// ListBookingsByUser returns every booking owned by userID, oldest start first.
func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY start_time, id`
	return s.listBookings(ctx, query, userID)
}

// ListActiveBookings returns active bookings of roomID that intersect [start, end).
func (s *Store) ListActiveBookings(ctx context.Context, roomID string, start, end time.Time) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE room_id = $1 AND status = 'active' AND start_time < $2 AND end_time > $3
		ORDER BY start_time, id`
	return s.listBookings(ctx, query, roomID, end.UTC(), start.UTC())
}

// UpdateBookingInterval moves a booking in place.
func (s *Store) UpdateBookingInterval(ctx context.Context, id string, start, end, updatedAt time.Time) error {
	if !start.Before(end) {
		return persistence.ErrConstraintViolation
	}
	const query = `UPDATE bookings SET start_time = $1, end_time = $2, updated_at = $3 WHERE id = $4`
	return s.execOne(ctx, query, start.UTC(), end.UTC(), updatedAt.UTC(), id)
}

// SetBookingStatus changes the lifecycle status of a booking.
func (s *Store) SetBookingStatus(ctx context.Context, id string, status string, updatedAt time.Time) error {
	if status != persistence.StatusActive && status != persistence.StatusCancelled {
		return persistence.ErrConstraintViolation
	}
	const query = `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`
	return s.execOne(ctx, query, status, updatedAt.UTC(), id)
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (s *Store) listBookings(ctx context.Context, query string, args ...any) ([]persistence.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, mapError(err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, mapError(rows.Err())
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var b persistence.Booking
	if err := row.Scan(&b.ID, &b.RoomID, &b.UserID, &b.Start, &b.End, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return persistence.Booking{}, err
	}
	b.Start, b.End = b.Start.UTC(), b.End.UTC()
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	return b, nil
}
