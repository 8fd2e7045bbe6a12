package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/database"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/ratelimit"
	"github.com/jackc/pgx/v4"
)

// RateLimitRepository keeps rate limit records in the rate_limits table
type RateLimitRepository struct {
	db *database.DB
}

var _ ratelimit.Store = (*RateLimitRepository)(nil)

func NewRateLimitRepository(db *database.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

func (r *RateLimitRepository) Get(ctx context.Context, key string) (*model.RateLimit, error) {
	var rec model.RateLimit
	err := r.db.Pool.QueryRow(ctx,
		`SELECT key, count, expires_at FROM rate_limits WHERE key = $1`,
		key).Scan(&rec.Key, &rec.Count, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ratelimit.ErrNoRecord
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RateLimitRepository) Reset(ctx context.Context, key string, expiresAt time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO rate_limits (key, count, expires_at)
		 VALUES ($1, 1, $2)
		 ON CONFLICT (key) DO UPDATE
		 SET count = 1,
		     expires_at = EXCLUDED.expires_at`,
		key, expiresAt)
	return err
}

func (r *RateLimitRepository) Increment(ctx context.Context, key string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE rate_limits SET count = count + 1 WHERE key = $1`, key)
	return err
}

// Delete removes the record. Deleting a missing key is a no-op.
func (r *RateLimitRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM rate_limits WHERE key = $1`, key)
	return err
}
