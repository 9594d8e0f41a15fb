package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Conceptual-Machines/scoreviz/internal/features"
)

// KeyPrefix namespaces feature records in Redis
const KeyPrefix = "scoreviz:features:"

const dialTimeout = 5 * time.Second

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// FeatureCache stores extracted feature records keyed by source content hash
type FeatureCache struct {
	rdb kv
	ttl time.Duration
}

// NewRedisFeatureCache connects to addr and verifies the connection
func NewRedisFeatureCache(ctx context.Context, addr string, ttl time.Duration) (*FeatureCache, *redis.Client, error) {
	if addr == "" {
		return nil, nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	return newFeatureCache(rdb, ttl), rdb, nil
}

func newFeatureCache(rdb kv, ttl time.Duration) *FeatureCache {
	return &FeatureCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached record, reporting false on a miss
func (c *FeatureCache) Get(ctx context.Context, key string) (*features.Record, bool, error) {
	raw, err := c.rdb.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	rec, err := features.Parse(raw)
	if err != nil {
		return nil, false, fmt.Errorf("cached record: %w", err)
	}
	return rec, true, nil
}

// Set stores the record with the configured TTL; zero means no expiry
func (c *FeatureCache) Set(ctx context.Context, key string, record *features.Record) error {
	payload, err := record.JSON()
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, KeyPrefix+key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
