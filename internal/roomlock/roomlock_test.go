package roomlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/application"
)

var (
	_ application.RoomLocker = (*Local)(nil)
	_ application.RoomLocker = (*Redis)(nil)
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedis(client, RedisConfig{PollInterval: 5 * time.Millisecond}, nil)
}

func exerciseMutualExclusion(t *testing.T, locker application.RoomLocker) {
	t.Helper()
	var (
		wg      sync.WaitGroup
		holders int32
		maxSeen int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			unlock, err := locker.Lock(ctx, "101")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&holders, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&holders, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
}

func TestLocal_MutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, NewLocal())
}

func TestLocal_TimesOutWhileHeld(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "101")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "101")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(context.Background(), "102")
	require.NoError(t, err)
	other()
}

func TestLocal_UnlockIsIdempotent(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "101")
	require.NoError(t, err)
	unlock()
	unlock()

	again, err := l.Lock(context.Background(), "101")
	require.NoError(t, err)
	again()
}

func TestRedis_MutualExclusion(t *testing.T) {
	_, locker := setupRedis(t)
	exerciseMutualExclusion(t, locker)
}

func TestRedis_ReleaseLeavesForeignTokenAlone(t *testing.T) {
	mr, locker := setupRedis(t)

	unlock, err := locker.Lock(context.Background(), "101")
	require.NoError(t, err)
	assert.True(t, mr.Exists("roomlock:101"))

	// Simulate lease expiry followed by another holder.
	require.NoError(t, mr.Set("roomlock:101", "someone-else"))
	unlock()

	got, err := mr.Get("roomlock:101")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_TimesOutWhileHeld(t *testing.T) {
	mr, locker := setupRedis(t)
	require.NoError(t, mr.Set("roomlock:101", "holder"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := locker.Lock(ctx, "101")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedis_LeaseIsSet(t *testing.T) {
	mr, locker := setupRedis(t)
	unlock, err := locker.Lock(context.Background(), "101")
	require.NoError(t, err)
	defer unlock()
	assert.Equal(t, DefaultRedisConfig().Lease, mr.TTL("roomlock:101"))
}
