package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	fieldCount   = "count"
	fieldExpires = "expires_at"
)

// RedisStore keeps each record in a hash that Redis expires on its own.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit:"}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*model.RateLimit, error) {
	vals, err := s.client.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrNoRecord
	}

	count, err := strconv.Atoi(vals[fieldCount])
	if err != nil {
		return nil, errors.New("ratelimit: malformed count")
	}
	ms, err := strconv.ParseInt(vals[fieldExpires], 10, 64)
	if err != nil {
		return nil, errors.New("ratelimit: malformed expiry")
	}

	return &model.RateLimit{Key: key, Count: count, ExpiresAt: time.UnixMilli(ms)}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string, expiresAt time.Time) error {
	k := s.prefix + key
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, fieldCount, 1, fieldExpires, expiresAt.UnixMilli())
		p.PExpireAt(ctx, k, expiresAt)
		return nil
	})
	return err
}

func (s *RedisStore) Increment(ctx context.Context, key string) error {
	return s.client.HIncrBy(ctx, s.prefix+key, fieldCount, 1).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
