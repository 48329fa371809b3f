package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/presence"
	"github.com/example/room-booking/internal/testfixtures"
)

// checkInBackends lists every CheckInRepository implementation that must honour
// the same first-write-wins contract.
func checkInBackends(t *testing.T) map[string]persistence.CheckInRepository {
	t.Helper()
	harness := testfixtures.NewSQLiteHarness(t)
	harness.SeedRooms(t, testfixtures.Room101())
	harness.SeedBookings(t, testfixtures.NewBookingFixture(testfixtures.WithBookingID("b-contract")))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]persistence.CheckInRepository{
		"sqlite": harness.Store,
		"redis":  presence.NewRedisRegistry(client, 0),
	}
}

func TestCheckInRepositoryContract(t *testing.T) {
	t.Parallel()

	for name, repo := range checkInBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := testfixtures.At(8, 55)

			_, err := repo.GetCheckIn(ctx, "b-contract")
			assert.ErrorIs(t, err, persistence.ErrNotFound)

			stored, err := repo.RecordCheckIn(ctx, persistence.CheckIn{BookingID: "b-contract", RecordedAt: first})
			require.NoError(t, err)
			assert.True(t, stored.RecordedAt.Equal(first))

			again, err := repo.RecordCheckIn(ctx, persistence.CheckIn{BookingID: "b-contract", RecordedAt: first.Add(time.Minute)})
			require.NoError(t, err)
			assert.True(t, again.RecordedAt.Equal(first), "first write wins")

			got, err := repo.GetCheckIn(ctx, "b-contract")
			require.NoError(t, err)
			assert.Equal(t, "b-contract", got.BookingID)
			assert.True(t, got.RecordedAt.Equal(first))
		})
	}
}

func TestBookingRepositoryContract(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	harness.SeedRooms(t, testfixtures.Room101())
	var repo persistence.BookingRepository = harness.Store

	morning := testfixtures.NewBookingFixture(testfixtures.WithBookingID("b-morning"))
	noon := testfixtures.NewBookingFixture(
		testfixtures.WithBookingID("b-noon"),
		testfixtures.WithBookingOwner("bob"),
		testfixtures.WithBookingWindow(testfixtures.At(12, 0), testfixtures.At(13, 0)),
	)
	require.NoError(t, repo.InsertBooking(ctx, morning.Persistence()))
	require.NoError(t, repo.InsertBooking(ctx, noon.Persistence()))

	t.Run("rejects overlapping active rows", func(t *testing.T) {
		clash := testfixtures.NewBookingFixture(testfixtures.WithBookingWindow(testfixtures.At(9, 30), testfixtures.At(10, 30)))
		assert.ErrorIs(t, repo.InsertBooking(ctx, clash.Persistence()), persistence.ErrOverlap)
	})

	t.Run("accepts touching rows", func(t *testing.T) {
		touching := testfixtures.NewBookingFixture(testfixtures.WithBookingWindow(testfixtures.At(10, 0), testfixtures.At(11, 0)))
		assert.NoError(t, repo.InsertBooking(ctx, touching.Persistence()))
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		dup := testfixtures.NewBookingFixture(
			testfixtures.WithBookingID("b-morning"),
			testfixtures.WithBookingWindow(testfixtures.At(18, 0), testfixtures.At(19, 0)),
		)
		assert.ErrorIs(t, repo.InsertBooking(ctx, dup.Persistence()), persistence.ErrDuplicate)
	})

	t.Run("lists active rows intersecting a window", func(t *testing.T) {
		active, err := repo.ListActiveBookings(ctx, "101", testfixtures.At(9, 59), testfixtures.At(12, 1))
		require.NoError(t, err)
		ids := make([]string, 0, len(active))
		for _, b := range active {
			ids = append(ids, b.ID)
		}
		assert.Contains(t, ids, "b-morning")
		assert.Contains(t, ids, "b-noon")
	})

	t.Run("cancel keeps the row and frees the slot", func(t *testing.T) {
		require.NoError(t, repo.SetBookingStatus(ctx, "b-noon", persistence.StatusCancelled, testfixtures.At(11, 0)))
		stored, err := repo.GetBooking(ctx, "b-noon")
		require.NoError(t, err)
		assert.Equal(t, persistence.StatusCancelled, stored.Status)

		active, err := repo.ListActiveBookings(ctx, "101", testfixtures.At(12, 0), testfixtures.At(13, 0))
		require.NoError(t, err)
		assert.Empty(t, active)

		bobs, err := repo.ListBookingsByUser(ctx, "bob")
		require.NoError(t, err)
		assert.Len(t, bobs, 1)
	})

	t.Run("missing rows", func(t *testing.T) {
		_, err := repo.GetBooking(ctx, "nope")
		assert.ErrorIs(t, err, persistence.ErrNotFound)
		err = repo.UpdateBookingInterval(ctx, "nope", testfixtures.At(14, 0), testfixtures.At(15, 0), testfixtures.At(9, 0))
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})
}

func TestRoomRepositoryContract(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	var repo persistence.RoomRepository = harness.Store

	room := testfixtures.NewRoomFixture(testfixtures.WithRoomID("r-1"), testfixtures.WithRoomName("Board Room"))
	require.NoError(t, repo.UpsertRoom(ctx, room.Persistence()))

	renamed := room
	renamed.Name = "Boardroom"
	renamed.CreatedAt = room.CreatedAt.Add(time.Hour)
	require.NoError(t, repo.UpsertRoom(ctx, renamed.Persistence()))

	got, err := repo.GetRoom(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "Boardroom", got.Name)
	assert.True(t, got.CreatedAt.Equal(room.CreatedAt))

	rooms, err := repo.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	_, err = repo.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}
