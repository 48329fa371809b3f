package roomlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig tunes the distributed lock.
type RedisConfig struct {
	// Prefix is prepended to the room id to form the key.
	Prefix string
	// Lease bounds how long a crashed holder can block a room.
	Lease time.Duration
	// PollInterval is the wait between acquisition attempts.
	PollInterval time.Duration
}

// DefaultRedisConfig returns the settings used by bookingd.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{Prefix: "roomlock:", Lease: 10 * time.Second, PollInterval: 20 * time.Millisecond}
}

// Redis is a lease based lock stored with SET NX PX.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
	logger *slog.Logger
}

// NewRedis builds a Redis lock. Zero config fields take their defaults.
func NewRedis(client *redis.Client, cfg RedisConfig, logger *slog.Logger) *Redis {
	def := DefaultRedisConfig()
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if cfg.Lease <= 0 {
		cfg.Lease = def.Lease
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, cfg: cfg, logger: logger}
}

// Lock polls until the key is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, roomID string) (func(), error) {
	key := r.cfg.Prefix + roomID
	token := uuid.NewString()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.cfg.Lease).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("roomlock: acquire %s: %w", key, err)
		}
		if ok {
			return r.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Redis) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := releaseScript.Run(ctx, r.client, []string{key}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				r.logger.Warn("failed to release room lock", "key", key, "error", err)
			}
		})
	}
}
