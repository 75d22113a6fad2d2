package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisHotCache keeps recently used cache entries in Redis so repeated
// announcements skip the database.  It is only an accelerator: the
// MySQL table stays authoritative.
type RedisHotCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisHotCache(rdb *redis.Client, prefix string, ttl time.Duration) *RedisHotCache {
	return &RedisHotCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (h *RedisHotCache) redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return h.prefix + ":" + hex.EncodeToString(sum[:])
}

func (h *RedisHotCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := h.rdb.Get(ctx, h.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores the entry only if absent, mirroring the table's first
// writer wins rule.
func (h *RedisHotCache) Set(ctx context.Context, key, url string) error {
	return h.rdb.SetNX(ctx, h.redisKey(key), url, h.ttl).Err()
}
