package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Cache = (*RedisCache)(nil)

// ErrRedisUnavailable wraps every transport failure reported by the Redis backend.
var ErrRedisUnavailable = errors.New("verification cache redis unavailable")

// removeIfRetries bounds optimistic-lock retries in RemoveIf.
const removeIfRetries = 4

// RedisCache stores entries as plain Redis strings with a PX expiry. A Redis restart
// drops in-flight flows just like a process restart does for MemoryCache.
type RedisCache struct {
	redis  *redis.Client
	prefix string
}

// NewRedisCache returns a Redis-backed cache. prefix namespaces every key so several
// services can share one Redis database; it may be empty.
func NewRedisCache(redisClient *redis.Client, prefix string) *RedisCache {
	return &RedisCache{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (c *RedisCache) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.redis.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return errors.Wrapf(ErrRedisUnavailable, "[RedisCache.Set] %v", err)
	}
	return nil
}

func (c *RedisCache) TryGet(ctx context.Context, key string) (string, bool, error) {
	value, err := c.redis.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(ErrRedisUnavailable, "[RedisCache.TryGet] %v", err)
	}
	return value, true, nil
}

func (c *RedisCache) Remove(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, c.key(key)).Err(); err != nil {
		return errors.Wrapf(ErrRedisUnavailable, "[RedisCache.Remove] %v", err)
	}
	return nil
}

// RemoveIf deletes key under WATCH so that of several concurrent callers holding the
// same value only one sees removed == true.
func (c *RedisCache) RemoveIf(ctx context.Context, key, value string) (bool, error) {
	k := c.key(key)
	for i := 0; i < removeIfRetries; i++ {
		removed := false
		err := c.redis.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, k).Result()
			if err != nil {
				return err
			}
			if current != value {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, k)
				return nil
			})
			if err != nil {
				return err
			}
			removed = true
			return nil
		}, k)

		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, redis.Nil):
			return false, nil
		case err != nil:
			return false, errors.Wrapf(ErrRedisUnavailable, "[RedisCache.RemoveIf] %v", err)
		}
		return removed, nil
	}
	return false, nil
}
