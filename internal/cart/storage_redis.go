package cart

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type snapshotKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartKey(sessionID string) string
}

// RedisStorage stores snapshots under sf:cart:<session>. Each save refreshes the TTL.
type RedisStorage struct {
	kv  snapshotKV
	ttl time.Duration
}

func NewRedisStorage(kv snapshotKV, ttl time.Duration) *RedisStorage {
	return &RedisStorage{kv: kv, ttl: ttl}
}

func (r *RedisStorage) Load(ctx context.Context, sessionID string) ([]byte, error) {
	raw, err := r.kv.Get(ctx, r.kv.CartKey(sessionID))
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

func (r *RedisStorage) Save(ctx context.Context, sessionID string, payload []byte) error {
	return r.kv.Set(ctx, r.kv.CartKey(sessionID), payload, r.ttl)
}
