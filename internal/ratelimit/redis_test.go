package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	_, err := store.Get(ctx, "2fa:a@b.c")
	require.ErrorIs(t, err, ErrNoRecord)

	expires := time.Now().Add(time.Minute).Truncate(time.Millisecond)
	require.NoError(t, store.Reset(ctx, "2fa:a@b.c", expires))
	require.NoError(t, store.Increment(ctx, "2fa:a@b.c"))

	rec, err := store.Get(ctx, "2fa:a@b.c")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Count)
	assert.True(t, rec.ExpiresAt.Equal(expires))
	assert.True(t, mr.TTL("ratelimit:2fa:a@b.c") > 0)

	require.NoError(t, store.Delete(ctx, "2fa:a@b.c"))
	_, err = store.Get(ctx, "2fa:a@b.c")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestRedisStore_WithLimiter(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	l := NewLimiter(store, nil)

	key := EmailSendKey("a@b.c")
	ok, err := l.Allow(ctx, key, EmailSendRule)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, key, EmailSendRule)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = l.Allow(ctx, key, EmailSendRule)
	require.NoError(t, err)
	assert.True(t, ok)
}
