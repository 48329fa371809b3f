// Package presence holds check-in markers outside the booking database and
// ingests badge events from MQTT readers.
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/example/room-booking/internal/persistence"
)

var _ persistence.CheckInRepository = (*RedisRegistry)(nil)

// RedisRegistry stores one key per booking. SETNX keeps the first write.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisRegistry builds a registry. A positive ttl expires markers ttl after
// the booking ends; zero keeps them forever.
func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, prefix: "checkin:", ttl: ttl, now: time.Now}
}

// expiry never lets a marker lapse before RetainUntil.
func (r *RedisRegistry) expiry(checkIn persistence.CheckIn) time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	remaining := checkIn.RetainUntil.Sub(r.now())
	if checkIn.RetainUntil.IsZero() || remaining < 0 {
		remaining = 0
	}
	return remaining + r.ttl
}

func (r *RedisRegistry) key(bookingID string) string {
	return r.prefix + bookingID
}

// RecordCheckIn sets the marker if absent and returns the stored value.
func (r *RedisRegistry) RecordCheckIn(ctx context.Context, checkIn persistence.CheckIn) (persistence.CheckIn, error) {
	if checkIn.BookingID == "" {
		return persistence.CheckIn{}, persistence.ErrConstraintViolation
	}
	value := checkIn.RecordedAt.UTC().Format(time.RFC3339Nano)
	if err := r.client.SetNX(ctx, r.key(checkIn.BookingID), value, r.expiry(checkIn)).Err(); err != nil {
		return persistence.CheckIn{}, fmt.Errorf("presence: record %s: %w", checkIn.BookingID, err)
	}
	return r.GetCheckIn(ctx, checkIn.BookingID)
}

// GetCheckIn returns persistence.ErrNotFound when the key is absent.
func (r *RedisRegistry) GetCheckIn(ctx context.Context, bookingID string) (persistence.CheckIn, error) {
	if bookingID == "" {
		return persistence.CheckIn{}, persistence.ErrNotFound
	}
	value, err := r.client.Get(ctx, r.key(bookingID)).Result()
	if errors.Is(err, redis.Nil) {
		return persistence.CheckIn{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.CheckIn{}, fmt.Errorf("presence: get %s: %w", bookingID, err)
	}
	at, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return persistence.CheckIn{}, fmt.Errorf("presence: parse %s: %w", bookingID, err)
	}
	return persistence.CheckIn{BookingID: bookingID, RecordedAt: at.UTC()}, nil
}
