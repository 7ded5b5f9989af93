package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseMutualExclusion(t *testing.T, locker Locker) {
	t.Helper()

	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "order:XP1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen, "at most one holder at a time")
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, NewLocalLocker())
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	locker := NewLocalLocker()

	unlockA, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "b")
	require.NoError(t, err, "a different key must not block")
	unlockB()
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	locker := NewLocalLocker()

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	unlock()
	unlock() // second call is harmless

	locker.mu.Lock()
	assert.Empty(t, locker.slots, "slots are dropped once nobody holds or waits")
	locker.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	_, client := newTestRedis(t)
	exerciseMutualExclusion(t, NewRedisLocker(client, 5*time.Second))
}

func TestRedisLocker_ReleaseDeletesKey(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "license:ABC")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"license:ABC"))

	unlock()
	assert.False(t, mr.Exists(keyPrefix+"license:ABC"))
}

func TestRedisLocker_TimesOutWhileHeld(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, 50*time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	// miniredis expires keys only on FastForward, so the holder keeps the key.
	_, err = locker.Lock(context.Background(), "k")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedisLocker_StaleHolderCannotReleaseNewOwner(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Second)

	staleUnlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	staleUnlock()
	assert.True(t, mr.Exists(keyPrefix+"k"), "expired holder must not delete the new owner's lock")

	unlock()
	assert.False(t, mr.Exists(keyPrefix+"k"))
}
