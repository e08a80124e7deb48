package redisclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestNewRedisClientPings(t *testing.T) {
	mr, _ := setupTestRedis(t)

	rdb, err := NewRedisClient(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	defer rdb.Close()

	_, err = NewRedisClient(context.Background(), Options{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}

func TestWithSlotLockReleasesKey(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisSlotLocker(client, 5*time.Second)
	scheduleID := uuid.New()
	key := SlotKey(scheduleID, "09:30")

	err := locker.WithSlotLock(context.Background(), scheduleID, "09:30", func(ctx context.Context) error {
		assert.True(t, mr.Exists(key))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
}

func TestWithSlotLockRejectsHeldSlot(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisSlotLocker(client, 5*time.Second)
	scheduleID := uuid.New()

	require.NoError(t, mr.Set(SlotKey(scheduleID, "10:00"), "someone-else"))

	called := false
	err := locker.WithSlotLock(context.Background(), scheduleID, "10:00", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrLockNotAcquired)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.False(t, called)

	// A foreign holder's key is left untouched.
	got, err := mr.Get(SlotKey(scheduleID, "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)

	// Other slots of the same schedule are independent.
	err = locker.WithSlotLock(context.Background(), scheduleID, "10:30", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
}

func TestWithSlotLockPropagatesError(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisSlotLocker(client, 5*time.Second)
	scheduleID := uuid.New()
	sentinel := errors.New("insert failed")

	err := locker.WithSlotLock(context.Background(), scheduleID, "11:00", func(ctx context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.False(t, mr.Exists(SlotKey(scheduleID, "11:00")))
}

func TestWithSlotLockSerializesConcurrentCallers(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewRedisSlotLocker(client, 5*time.Second)
	scheduleID := uuid.New()

	const workers = 10
	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
		release = make(chan struct{})
		got     = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got <- locker.WithSlotLock(context.Background(), scheduleID, "12:00", func(ctx context.Context) error {
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				<-release
				inside.Add(-1)
				return nil
			})
		}()
	}

	// Everyone but the holder fails fast; then let the holder finish.
	rejected := 0
	for rejected < workers-1 {
		err := <-got
		require.ErrorIs(t, err, ErrLockNotAcquired)
		rejected++
	}
	close(release)
	wg.Wait()
	close(got)

	require.NoError(t, <-got)
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestNoopLockerRunsFn(t *testing.T) {
	called := false
	err := NoopLocker{}.WithSlotLock(context.Background(), uuid.New(), "09:00", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
