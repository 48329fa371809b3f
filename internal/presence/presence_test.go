package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func setupRegistry(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisRegistry) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisRegistry(client, ttl)
}

func TestRedisRegistry_FirstWriteWins(t *testing.T) {
	_, registry := setupRegistry(t, 0)
	ctx := context.Background()

	_, err := registry.GetCheckIn(ctx, "b1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	first, err := registry.RecordCheckIn(ctx, persistence.CheckIn{BookingID: "b1", RecordedAt: baseTime})
	require.NoError(t, err)
	second, err := registry.RecordCheckIn(ctx, persistence.CheckIn{BookingID: "b1", RecordedAt: baseTime.Add(time.Minute)})
	require.NoError(t, err)

	assert.True(t, first.RecordedAt.Equal(baseTime))
	assert.True(t, second.RecordedAt.Equal(baseTime))
}

func TestRedisRegistry_TTL(t *testing.T) {
	mr, registry := setupRegistry(t, time.Hour)
	ctx := context.Background()

	_, err := registry.RecordCheckIn(ctx, persistence.CheckIn{BookingID: "b1", RecordedAt: baseTime})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("checkin:b1"))

	mr.FastForward(2 * time.Hour)
	_, err = registry.GetCheckIn(ctx, "b1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestRedisRegistry_TTLCountsFromBookingEnd(t *testing.T) {
	mr, registry := setupRegistry(t, 10*time.Minute)
	registry.now = func() time.Time { return baseTime }
	ctx := context.Background()

	_, err := registry.RecordCheckIn(ctx, persistence.CheckIn{BookingID: "b1", RecordedAt: baseTime, RetainUntil: baseTime.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour+10*time.Minute, mr.TTL("checkin:b1"))

	mr.FastForward(2 * time.Hour)
	_, err = registry.GetCheckIn(ctx, "b1")
	require.NoError(t, err, "marker outlives the booking window")

	mr.FastForward(11 * time.Minute)
	_, err = registry.GetCheckIn(ctx, "b1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = registry.RecordCheckIn(ctx, persistence.CheckIn{BookingID: "b2", RecordedAt: baseTime, RetainUntil: baseTime.Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, mr.TTL("checkin:b2"))
}

func TestRedisRegistry_CorruptValue(t *testing.T) {
	mr, registry := setupRegistry(t, 0)
	require.NoError(t, mr.Set("checkin:b1", "yesterday"))

	_, err := registry.GetCheckIn(context.Background(), "b1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, persistence.ErrNotFound)
}

type recorderFunc func(ctx context.Context, bookingID string) (application.CheckIn, error)

func (f recorderFunc) Record(ctx context.Context, bookingID string) (application.CheckIn, error) {
	return f(ctx, bookingID)
}

func TestSubscriber_Handle(t *testing.T) {
	var got []string
	recorder := recorderFunc(func(_ context.Context, bookingID string) (application.CheckIn, error) {
		if bookingID == "ghost" {
			return application.CheckIn{}, application.ErrBookingNotFound
		}
		got = append(got, bookingID)
		return application.CheckIn{BookingID: bookingID, RecordedAt: baseTime}, nil
	})

	sub, err := NewSubscriber(SubscriberConfig{Broker: "tcp://localhost:1883", TopicPrefix: "site/badges/"}, recorder, nil)
	require.NoError(t, err)
	assert.Equal(t, "site/badges/+/checkin", sub.Topic())

	ctx := context.Background()
	require.NoError(t, sub.Handle(ctx, "site/badges/r1/checkin", []byte(`{"booking_id":" b1 "}`)))
	assert.Equal(t, []string{"b1"}, got)

	err = sub.Handle(ctx, "site/badges/r1/checkin", []byte(`{"booking_id":"ghost"}`))
	assert.True(t, errors.Is(err, application.ErrBookingNotFound))

	err = sub.Handle(ctx, "site/badges/r1/checkin", []byte(`{}`))
	assert.ErrorIs(t, err, application.ErrBookingNotFound)

	err = sub.Handle(ctx, "site/badges/r1/checkin", []byte(`not json`))
	assert.Error(t, err)
	assert.Len(t, got, 1)
}

func TestNewSubscriber_Validation(t *testing.T) {
	_, err := NewSubscriber(SubscriberConfig{}, recorderFunc(nil), nil)
	assert.Error(t, err)

	_, err = NewSubscriber(SubscriberConfig{Broker: "tcp://x:1883"}, nil, nil)
	assert.Error(t, err)

	sub, err := NewSubscriber(SubscriberConfig{Broker: "tcp://x:1883"}, recorderFunc(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "badges/+/checkin", sub.Topic())
}
