package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInService_Record(t *testing.T) {
	t.Parallel()
	store := newMemoryStore(testRooms()...)
	_, err := store.InsertBooking(context.Background(), Booking{ID: "b1", RoomID: "101", UserID: "alice", Start: testBase, End: testBase.Add(time.Hour), Status: BookingStatusActive})
	require.NoError(t, err)

	clock := &fixedClock{now: testBase.Add(-5 * time.Minute)}
	svc := NewCheckInService(store, store, clock.Now)
	ctx := context.Background()

	first, err := svc.Record(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, first.RecordedAt.Equal(clock.Now()))
	assert.True(t, store.retainUntil["b1"].Equal(testBase.Add(time.Hour)), "marker is kept through the booking end")

	clock.Set(testBase)
	second, err := svc.Record(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, second.RecordedAt.Equal(first.RecordedAt), "first arrival wins")

	got, ok, err := svc.Get(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, got)

	_, ok, err = svc.Get(ctx, "b2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckInService_RecordRequiresBooking(t *testing.T) {
	t.Parallel()
	store := newMemoryStore()
	svc := NewCheckInService(store, store, nil)

	_, err := svc.Record(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrBookingNotFound)
	_, err = svc.Record(context.Background(), "")
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.Empty(t, store.checkins)
}

func TestCheckInService_NoRegistry(t *testing.T) {
	t.Parallel()
	svc := NewCheckInService(nil, nil, nil)
	_, err := svc.Record(context.Background(), "b1")
	assert.Error(t, err)

	_, ok, err := svc.Get(context.Background(), "b1")
	assert.NoError(t, err)
	assert.False(t, ok)
}
