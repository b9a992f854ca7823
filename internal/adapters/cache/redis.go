package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/pitchload/pkg/logger"
	"github.com/okian/pitchload/pkg/metrics"
)

const (
	backendRedis   = "redis"
	redisKeyPrefix = "pitchload:cache:"
)

// RedisCache stores responses in Redis with native key expiry, so several
// service replicas share one cache.
type RedisCache struct {
	client *redis.Client
	log    logger.Logger
}

// RedisOption applies a configuration option to the RedisCache.
type RedisOption func(*redis.Options)

// WithDialTimeout bounds connection attempts.
func WithDialTimeout(d time.Duration) RedisOption {
	return func(o *redis.Options) {
		o.DialTimeout = d
		o.ReadTimeout = d
		o.WriteTimeout = d
	}
}

// WithMaxRetries sets the command retry count; -1 disables retries.
func WithMaxRetries(n int) RedisOption {
	return func(o *redis.Options) {
		o.MaxRetries = n
	}
}

// NewRedisCache connects from a redis:// URL or a plain host:port.
func NewRedisCache(redisURL string, opts ...RedisOption) (*RedisCache, error) {
	var opt *redis.Options
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opt = parsed
	} else {
		opt = &redis.Options{Addr: redisURL}
	}
	for _, o := range opts {
		o(opt)
	}
	return &RedisCache{
		client: redis.NewClient(opt),
		log:    logger.Named("redis_cache"),
	}, nil
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	switch {
	case err == nil:
		metrics.RecordCacheHit(backendRedis)
		return b, true
	case errors.Is(err, redis.Nil):
	default:
		metrics.RecordCacheError(backendRedis)
		c.log.Warn(ctx, "redis cache get failed", logger.String("key", key), logger.Error(err))
	}
	metrics.RecordCacheMiss(backendRedis)
	return nil, false
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		metrics.RecordCacheError(backendRedis)
		c.log.Warn(ctx, "redis cache set failed", logger.String("key", key), logger.Error(err))
	}
}

func (c *RedisCache) Backend() string { return backendRedis }

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
