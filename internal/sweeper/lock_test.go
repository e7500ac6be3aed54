package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeRedis()
	first, err := NewRedisLock(store, "sweep", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "sweep", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// a non-owner release leaves the key alone
	require.NoError(t, second.Release(ctx))
	_, err = store.Get(ctx, "sweep")
	require.NoError(t, err)

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLock_ExpiredAndStolen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeRedis()
	lock, err := NewRedisLock(store, "sweep", 0)
	require.NoError(t, err)
	require.Equal(t, defaultLockTTL, lock.ttl)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// TTL expired and another instance took the key
	store.set("sweep", "someone-else")
	require.NoError(t, lock.Release(ctx))
	v, err := store.Get(ctx, "sweep")
	require.NoError(t, err)
	require.Equal(t, "someone-else", v)

	// key vanished entirely
	require.NoError(t, store.Del(ctx, "sweep"))
	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Del(ctx, "sweep"))
	require.NoError(t, lock.Release(ctx))
}

func TestRedisLock_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewRedisLock(nil, "sweep", time.Second)
	require.Error(t, err)
	_, err = NewRedisLock(newFakeRedis(), "", time.Second)
	require.Error(t, err)

	store := newFakeRedis()
	store.setErr = errors.New("connection refused")
	lock, err := NewRedisLock(store, "sweep", time.Second)
	require.NoError(t, err)
	_, err = lock.Acquire(context.Background())
	require.Error(t, err)
}

func TestLocalLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lock := NewLocalLock()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, lock.Release(ctx))
	ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}
