package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/model"
)

// ErrNoRecord is returned by a Store when the key has no record.
var ErrNoRecord = errors.New("rate limit record not found")

// Store persists rate limit records.
type Store interface {
	Get(ctx context.Context, key string) (*model.RateLimit, error)
	// Reset writes a record with count 1 that expires at the given time.
	Reset(ctx context.Context, key string, expiresAt time.Time) error
	Increment(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
}

type Rule struct {
	Limit  int
	Window time.Duration
}

var (
	TwoFactorRule = Rule{Limit: 3, Window: 10 * time.Minute}
	EmailSendRule = Rule{Limit: 1, Window: time.Minute}
	LoginRule     = Rule{Limit: 5, Window: 15 * time.Minute}
)

func TwoFactorKey(email string) string { return "2fa:" + email }
func EmailSendKey(email string) string { return "email_send:" + email }
func LoginKey(email string) string     { return "login:" + email }

// RejectionRecorder is notified with the key prefix of every rejected attempt.
type RejectionRecorder interface {
	RateLimited(rule string)
}

// Limiter is a fixed-window counter over a Store.
type Limiter struct {
	store    Store
	recorder RejectionRecorder
	now      func() time.Time
}

func NewLimiter(store Store, recorder RejectionRecorder) *Limiter {
	return &Limiter{store: store, recorder: recorder, now: time.Now}
}

// Allow counts an attempt for key and reports whether it is within the rule.
// A missing or expired record starts a new window. A full window rejects
// without writing.
func (l *Limiter) Allow(ctx context.Context, key string, rule Rule) (bool, error) {
	const op = "ratelimit.Allow"

	now := l.now()
	rec, err := l.store.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNoRecord) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if rec == nil || !now.Before(rec.ExpiresAt) {
		if err := l.store.Reset(ctx, key, now.Add(rule.Window)); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return true, nil
	}

	if rec.Count >= rule.Limit {
		if l.recorder != nil {
			l.recorder.RateLimited(prefix(key))
		}
		return false, nil
	}

	if err := l.store.Increment(ctx, key); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Clear removes the record for key. A missing record is not an error.
func (l *Limiter) Clear(ctx context.Context, key string) error {
	if err := l.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNoRecord) {
		return fmt.Errorf("ratelimit.Clear: %w", err)
	}
	return nil
}

func prefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
