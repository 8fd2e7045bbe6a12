package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]model.RateLimit
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]model.RateLimit)}
}

func (s *memoryStore) Get(_ context.Context, key string) (*model.RateLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, ErrNoRecord
	}
	return &rec, nil
}

func (s *memoryStore) Reset(_ context.Context, key string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = model.RateLimit{Key: key, Count: 1, ExpiresAt: expiresAt}
	return nil
}

func (s *memoryStore) Increment(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[key]
	rec.Count++
	s.records[key] = rec
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return ErrNoRecord
	}
	delete(s.records, key)
	return nil
}

type countingRecorder struct {
	rules []string
}

func (r *countingRecorder) RateLimited(rule string) { r.rules = append(r.rules, rule) }

func TestLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	rec := &countingRecorder{}
	l := NewLimiter(store, rec)

	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	key := TwoFactorKey("user@example.com")
	for i := 1; i <= TwoFactorRule.Limit; i++ {
		ok, err := l.Allow(ctx, key, TwoFactorRule)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)
	}

	ok, err := l.Allow(ctx, key, TwoFactorRule)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"2fa"}, rec.rules)

	// a rejected attempt does not extend the window or the count
	stored, _ := store.Get(ctx, key)
	assert.Equal(t, 3, stored.Count)
	assert.Equal(t, now.Add(10*time.Minute), stored.ExpiresAt)

	now = now.Add(10 * time.Minute)
	ok, err = l.Allow(ctx, key, TwoFactorRule)
	require.NoError(t, err)
	assert.True(t, ok, "window should restart once expired")

	stored, _ = store.Get(ctx, key)
	assert.Equal(t, 1, stored.Count)
}

func TestLimiter_EmailSendAllowsOnePerMinute(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(newMemoryStore(), nil)
	now := time.Now()
	l.now = func() time.Time { return now }

	key := EmailSendKey("a@b.c")
	ok, _ := l.Allow(ctx, key, EmailSendRule)
	assert.True(t, ok)

	ok, _ = l.Allow(ctx, key, EmailSendRule)
	assert.False(t, ok)

	now = now.Add(61 * time.Second)
	ok, _ = l.Allow(ctx, key, EmailSendRule)
	assert.True(t, ok)
}

func TestLimiter_Clear(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	l := NewLimiter(store, nil)

	require.NoError(t, l.Clear(ctx, "missing"))

	key := LoginKey("x@y.z")
	for i := 0; i < LoginRule.Limit; i++ {
		_, err := l.Allow(ctx, key, LoginRule)
		require.NoError(t, err)
	}
	ok, _ := l.Allow(ctx, key, LoginRule)
	require.False(t, ok)

	require.NoError(t, l.Clear(ctx, key))
	ok, _ = l.Allow(ctx, key, LoginRule)
	assert.True(t, ok)
}
