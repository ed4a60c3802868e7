package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/foxseedlab/mensetsu/internal/lock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func assertSerializes(t *testing.T, l lock.Locker) {
	t.Helper()
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "cand-1")
			if err != nil {
				t.Errorf("unexpected lock error: %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestMemoryLocker_Serializes(t *testing.T) {
	assertSerializes(t, NewMemoryLocker())
}

func TestMemoryLocker_IndependentKeys(t *testing.T) {
	l := NewMemoryLocker()
	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	l := NewMemoryLocker()
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	assert.True(t, errors.Is(err, lock.ErrNotAcquired))

	unlock()
	unlock()
	l.mu.Lock()
	assert.Empty(t, l.slots)
	l.mu.Unlock()
}

func TestRedisLocker_Serializes(t *testing.T) {
	_, rdb := setupTestRedis(t)
	assertSerializes(t, NewRedisLocker(rdb, time.Minute))
}

func TestRedisLocker_ReleaseDeletesKey(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	l := NewRedisLocker(rdb, time.Minute)

	unlock, err := l.Lock(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(redisKeyPrefix+"cand-1"))

	unlock()
	assert.False(t, mr.Exists(redisKeyPrefix+"cand-1"))
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	l := NewRedisLocker(rdb, time.Minute)

	unlock, err := l.Lock(context.Background(), "cand-1")
	require.NoError(t, err)
	require.NoError(t, mr.Set(redisKeyPrefix+"cand-1", "someone-else"))

	unlock()
	got, err := mr.Get(redisKeyPrefix + "cand-1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_ContextCancelled(t *testing.T) {
	_, rdb := setupTestRedis(t)
	l := NewRedisLocker(rdb, time.Minute)

	unlock, err := l.Lock(context.Background(), "cand-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "cand-1")
	assert.True(t, errors.Is(err, lock.ErrNotAcquired))
}

func TestRedisLocker_TTLExpires(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	l := NewRedisLocker(rdb, time.Second)

	_, err := l.Lock(context.Background(), "cand-1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err := l.Lock(ctx, "cand-1")
	require.NoError(t, err)
	unlock()
}
