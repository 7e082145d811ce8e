package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "skintone"

// CacheKey derives the cache key from image content and an options fingerprint.
func CacheKey(data []byte, fingerprint string) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%s", cacheKeyPrefix, hex.EncodeToString(sum[:]), fingerprint)
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is not set")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis (%s, DB %d): %w", addr, db, err)
	}
	return rdb, nil
}

// RedisAnalysisCache implements AnalysisCache on a Redis client
type RedisAnalysisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisAnalysisCache creates a cache; a zero ttl keeps entries forever.
func NewRedisAnalysisCache(client redis.Cmdable, ttl time.Duration) *RedisAnalysisCache {
	return &RedisAnalysisCache{client: client, ttl: ttl}
}

func (c *RedisAnalysisCache) Get(ctx context.Context, key string) (*CachedAnalysis, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	var analysis CachedAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		// A corrupt entry behaves like a miss and is overwritten on the next Set.
		return nil, false, nil
	}
	return &analysis, true, nil
}

func (c *RedisAnalysisCache) Set(ctx context.Context, key string, analysis *CachedAnalysis) error {
	if analysis == nil {
		return nil
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode cached analysis: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
