package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomService_SeedAndList(t *testing.T) {
	t.Parallel()
	store := newMemoryStore()
	clock := &fixedClock{now: testBase}
	svc := NewRoomService(store, clock.Now)
	ctx := context.Background()

	n, err := svc.SeedRooms(ctx, []RoomInput{
		{ID: "b", Name: "beta", Capacity: 2},
		{ID: "a2", Name: "Alpha", Capacity: 6},
		{ID: "a1", Name: "alpha", Location: " Floor 2 ", Capacity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rooms, err := svc.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, []string{"a1", "a2", "b"}, []string{rooms[0].ID, rooms[1].ID, rooms[2].ID})
	assert.Equal(t, "Floor 2", rooms[0].Location)

	// Reseeding keeps the original creation time.
	clock.Set(testBase.Add(time.Hour))
	_, err = svc.SeedRooms(ctx, []RoomInput{{ID: "b", Name: "beta", Capacity: 3}})
	require.NoError(t, err)
	room, err := svc.GetRoom(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 3, room.Capacity)
	assert.True(t, room.CreatedAt.Equal(testBase))
	assert.True(t, room.UpdatedAt.Equal(testBase.Add(time.Hour)))
}

func TestRoomService_SeedValidatesEverythingFirst(t *testing.T) {
	t.Parallel()
	store := newMemoryStore()
	svc := NewRoomService(store, nil)

	_, err := svc.SeedRooms(context.Background(), []RoomInput{
		{ID: "ok", Name: "Fine", Capacity: 1},
		{ID: "", Name: "No id", Capacity: 1},
		{ID: "x", Name: "", Capacity: 1},
		{ID: "y", Name: "Empty", Capacity: 0},
		{ID: "ok", Name: "Again", Capacity: 1},
	})
	require.Error(t, err)
	for _, want := range []string{"room 1: id is required", "room x: name is required", "room y: capacity must be positive", "room ok: duplicate id"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.Empty(t, store.rooms)
}

func TestRoomService_GetRoom(t *testing.T) {
	t.Parallel()
	svc := NewRoomService(newMemoryStore(testRooms()...), nil)

	room, err := svc.GetRoom(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, "Room 101", room.Name)

	_, err = svc.GetRoom(context.Background(), "404")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = svc.GetRoom(context.Background(), "")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
