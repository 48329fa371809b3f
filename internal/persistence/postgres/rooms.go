package postgres

import (
	"context"
	"strings"

	"github.com/example/room-booking/internal/persistence"
)

// UpsertRoom inserts the room or refreshes its descriptive fields.
func (s *Store) UpsertRoom(ctx context.Context, room persistence.Room) error {
	if strings.TrimSpace(room.ID) == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	const query = `
		INSERT INTO rooms (id, name, location, capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			capacity = EXCLUDED.capacity,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		room.ID, room.Name, room.Location, room.Capacity, room.CreatedAt.UTC(), room.UpdatedAt.UTC())
	return mapError(err)
}

// GetRoom retrieves a room by id.
func (s *Store) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}
	const query = `SELECT id, name, location, capacity, created_at, updated_at FROM rooms WHERE id = $1`
	room, err := scanRoom(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return persistence.Room{}, mapError(err)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by name then id.
func (s *Store) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	const query = `SELECT id, name, location, capacity, created_at, updated_at FROM rooms ORDER BY name, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, mapError(err)
		}
		rooms = append(rooms, room)
	}
	return rooms, mapError(rows.Err())
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var room persistence.Room
	if err := row.Scan(&room.ID, &room.Name, &room.Location, &room.Capacity, &room.CreatedAt, &room.UpdatedAt); err != nil {
		return persistence.Room{}, err
	}
	room.CreatedAt = room.CreatedAt.UTC()
	room.UpdatedAt = room.UpdatedAt.UTC()
	return room, nil
}
