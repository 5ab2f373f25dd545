package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/utils"
	"github.com/redis/go-redis/v9"
)

// FactorCache keeps the TIER 1 factors close to the calculation path.
// A miss is reported as ok=false with a nil error.
type FactorCache interface {
	Get(ctx context.Context) (factors []pricing.Factor, ok bool, err error)
	Set(ctx context.Context, factors []pricing.Factor) error
	Invalidate(ctx context.Context) error
}

// NewFactorCache returns a Redis backed cache, or a cache that always misses when rc is nil
func NewFactorCache(rc *redis.Client, cfg config.CacheConfig, ttl time.Duration) FactorCache {
	if rc == nil {
		return noopFactorCache{}
	}
	if ttl <= 0 {
		ttl = cfg.DefaultTTL
	}
	return &redisFactorCache{rc: rc, key: RedisKey(cfg, utils.PricingFactorsCacheKey), ttl: ttl}
}

type redisFactorCache struct {
	rc  *redis.Client
	key string
	ttl time.Duration
}

func (c *redisFactorCache) Get(ctx context.Context) ([]pricing.Factor, bool, error) {
	raw, err := c.rc.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var factors []pricing.Factor
	if err := json.Unmarshal(raw, &factors); err != nil {
		// a corrupt entry is treated as a miss and replaced on the next Set
		return nil, false, nil
	}
	return factors, true, nil
}

func (c *redisFactorCache) Set(ctx context.Context, factors []pricing.Factor) error {
	raw, err := json.Marshal(factors)
	if err != nil {
		return err
	}
	return c.rc.Set(ctx, c.key, raw, c.ttl).Err()
}

func (c *redisFactorCache) Invalidate(ctx context.Context) error {
	return c.rc.Del(ctx, c.key).Err()
}

type noopFactorCache struct{}

func (noopFactorCache) Get(context.Context) ([]pricing.Factor, bool, error) { return nil, false, nil }
func (noopFactorCache) Set(context.Context, []pricing.Factor) error         { return nil }
func (noopFactorCache) Invalidate(context.Context) error                    { return nil }
