package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomDirectory captures the read operations the core needs for rooms.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// RoomStore extends the directory with the administrative upsert used at boot.
type RoomStore interface {
	RoomDirectory
	UpsertRoom(ctx context.Context, room Room) (Room, error)
}

// RoomInput captures administrator supplied room fields.
type RoomInput struct {
	ID       string
	Name     string
	Location string
	Capacity int
}

// RoomService exposes the room catalog.
type RoomService struct {
	rooms  RoomStore
	now    func() time.Time
	logger *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomStore, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomStore, now func() time.Time, logger *slog.Logger) *RoomService {
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// ListRooms returns every room ordered by name, then id.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to list rooms", err)
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "rooms listed")
	}()

	rooms, err = listRoomsSorted(ctx, s.rooms)
	return
}

// GetRoom returns a single room or ErrRoomNotFound.
func (s *RoomService) GetRoom(ctx context.Context, id string) (Room, error) {
	if s == nil {
		return Room{}, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil || strings.TrimSpace(id) == "" {
		return Room{}, ErrRoomNotFound
	}
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// SeedRooms upserts the supplied rooms. Every entry is validated before any write.
func (s *RoomService) SeedRooms(ctx context.Context, inputs []RoomInput) (seeded int, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room store not configured")
		return
	}

	logger := s.loggerWith(ctx, "SeedRooms", "input_count", len(inputs))
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to seed rooms", err)
			return
		}
		logger.With("seeded", seeded).InfoContext(ctx, "rooms seeded")
	}()

	if err = validateRoomInputs(inputs); err != nil {
		return
	}

	now := s.now().UTC()
	for _, input := range inputs {
		room := Room{
			ID:        strings.TrimSpace(input.ID),
			Name:      strings.TrimSpace(input.Name),
			Location:  strings.TrimSpace(input.Location),
			Capacity:  input.Capacity,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err = s.rooms.UpsertRoom(ctx, room); err != nil {
			err = fmt.Errorf("seed room %s: %w", room.ID, err)
			return
		}
		seeded++
	}
	return
}

func validateRoomInputs(inputs []RoomInput) error {
	var problems []error
	seen := make(map[string]struct{}, len(inputs))

	for i, input := range inputs {
		id := strings.TrimSpace(input.ID)
		switch {
		case id == "":
			problems = append(problems, fmt.Errorf("room %d: id is required", i))
		case strings.TrimSpace(input.Name) == "":
			problems = append(problems, fmt.Errorf("room %s: name is required", id))
		case input.Capacity <= 0:
			problems = append(problems, fmt.Errorf("room %s: capacity must be positive", id))
		}
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			problems = append(problems, fmt.Errorf("room %s: duplicate id", id))
		}
		seen[id] = struct{}{}
	}
	return errors.Join(problems...)
}

func listRoomsSorted(ctx context.Context, directory RoomDirectory) ([]Room, error) {
	raw, err := directory.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	rooms := make([]Room, len(raw))
	copy(rooms, raw)
	sort.Slice(rooms, func(i, j int) bool {
		if strings.EqualFold(rooms[i].Name, rooms[j].Name) {
			return rooms[i].ID < rooms[j].ID
		}
		return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
	})
	return rooms, nil
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRoomNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrRoomNotFound
	}
	return err
}
