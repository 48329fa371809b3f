package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/room-booking/internal/persistence"
)

// CheckInRepository implements persistence.CheckInRepository using SQLite.
type CheckInRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCheckInRepository creates a new SQLite check-in repository.
func NewCheckInRepository(pool *ConnectionPool) *CheckInRepository {
	return &CheckInRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// RecordCheckIn stores the marker unless one exists and returns the stored row.
func (r *CheckInRepository) RecordCheckIn(ctx context.Context, checkIn persistence.CheckIn) (persistence.CheckIn, error) {
	if checkIn.BookingID == "" {
		return persistence.CheckIn{}, persistence.ErrConstraintViolation
	}

	var stored persistence.CheckIn
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		const insert = `INSERT INTO check_ins (booking_id, recorded_at) VALUES (?, ?) ON CONFLICT (booking_id) DO NOTHING`
		if _, err := r.helper.ExecTx(ctx, tx, insert, checkIn.BookingID, formatTime(checkIn.RecordedAt)); err != nil {
			return err
		}

		const query = `SELECT booking_id, recorded_at FROM check_ins WHERE booking_id = ?`
		var err error
		stored, err = scanCheckIn(r.helper.QueryRowTx(ctx, tx, query, checkIn.BookingID))
		return err
	})
	if err != nil {
		return persistence.CheckIn{}, r.mapper.MapError(err)
	}
	return stored, nil
}

// GetCheckIn returns persistence.ErrNotFound when no marker exists.
func (r *CheckInRepository) GetCheckIn(ctx context.Context, bookingID string) (persistence.CheckIn, error) {
	if bookingID == "" {
		return persistence.CheckIn{}, persistence.ErrNotFound
	}
	const query = `SELECT booking_id, recorded_at FROM check_ins WHERE booking_id = ?`
	stored, err := scanCheckIn(r.helper.QueryRow(ctx, query, bookingID))
	if err != nil {
		return persistence.CheckIn{}, r.mapper.MapError(err)
	}
	return stored, nil
}

func scanCheckIn(row rowScanner) (persistence.CheckIn, error) {
	var (
		checkIn    persistence.CheckIn
		recordedAt string
	)
	if err := row.Scan(&checkIn.BookingID, &recordedAt); err != nil {
		return persistence.CheckIn{}, err
	}
	t, err := parseTime("recorded_at", recordedAt)
	if err != nil {
		return persistence.CheckIn{}, err
	}
	checkIn.RecordedAt = t
	return checkIn, nil
}
