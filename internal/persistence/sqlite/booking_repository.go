package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
// Overlapping active rows are rejected by triggers as well as by callers.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const bookingColumns = `id, room_id, user_id, start_time, end_time, status, created_at, updated_at`

// InsertBooking stores a new booking.
func (r *BookingRepository) InsertBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" || !booking.Start.Before(booking.End) {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		booking.ID,
		booking.RoomID,
		booking.UserID,
		formatTime(booking.Start),
		formatTime(booking.End),
		booking.Status,
		formatTime(booking.CreatedAt),
		formatTime(booking.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetBooking retrieves a booking by id regardless of status.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// ListBookingsByUser returns every booking owned by userID, oldest start first.
func (r *BookingRepository) ListBookingsByUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY start_time ASC, id ASC`
	return r.list(ctx, query, userID)
}

// ListActiveBookings returns active bookings of roomID that intersect [start, end).
func (r *BookingRepository) ListActiveBookings(ctx context.Context, roomID string, start, end time.Time) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE room_id = ? AND status = 'active' AND start_time < ? AND end_time > ?
		ORDER BY start_time ASC, id ASC`
	return r.list(ctx, query, roomID, formatTime(end), formatTime(start))
}

// UpdateBookingInterval moves a booking in place.
func (r *BookingRepository) UpdateBookingInterval(ctx context.Context, id string, start, end, updatedAt time.Time) error {
	if !start.Before(end) {
		return persistence.ErrConstraintViolation
	}
	const query = `UPDATE bookings SET start_time = ?, end_time = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, query, formatTime(start), formatTime(end), formatTime(updatedAt), id)
}

// SetBookingStatus changes the lifecycle status of a booking.
func (r *BookingRepository) SetBookingStatus(ctx context.Context, id string, status string, updatedAt time.Time) error {
	if status != persistence.StatusActive && status != persistence.StatusCancelled {
		return persistence.ErrConstraintViolation
	}
	const query = `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, query, status, formatTime(updatedAt), id)
}

func (r *BookingRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.helper.Exec(ctx, query, args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]persistence.Booking, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking                          persistence.Booking
		start, end, createdAt, updatedAt string
	)
	if err := row.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.UserID,
		&start,
		&end,
		&booking.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Booking{}, err
	}

	var err error
	if booking.Start, err = parseTime("start_time", start); err != nil {
		return persistence.Booking{}, err
	}
	if booking.End, err = parseTime("end_time", end); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}
