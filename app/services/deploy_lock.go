package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/utils"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when another worker holds the lock
var ErrLockBusy = errors.New("lock is held by another worker")

// DeployLocker serialises lifecycle changes of one fix proposal across instances
type DeployLocker interface {
	// Acquire returns a release func, or ErrLockBusy
	Acquire(ctx context.Context, proposalID uint) (func(), error)
}

// NewDeployLocker returns a Redis SETNX lock, or a lock that always succeeds when rc is nil.
// The row version check still guards every change without Redis.
func NewDeployLocker(rc *redis.Client, cfg config.CacheConfig, ttl time.Duration) DeployLocker {
	if rc == nil {
		return noopDeployLocker{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisDeployLocker{rc: rc, cfg: cfg, ttl: ttl}
}

type redisDeployLocker struct {
	rc  *redis.Client
	cfg config.CacheConfig
	ttl time.Duration
}

func (l *redisDeployLocker) Acquire(ctx context.Context, proposalID uint) (func(), error) {
	key := RedisKey(l.cfg, utils.DeployLockKeyPrefix+strconv.FormatUint(uint64(proposalID), 10))
	token, err := generateTokenID()
	if err != nil {
		return nil, err
	}

	ok, err := l.rc.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockBusy
	}

	return func() {
		// only delete the lock while it still carries our token
		script := redis.NewScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`)
		_ = script.Run(context.Background(), l.rc, []string{key}, token).Err()
	}, nil
}

type noopDeployLocker struct{}

func (noopDeployLocker) Acquire(context.Context, uint) (func(), error) { return func() {}, nil }
