package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	cacheBackendVar  = "CACHE_BACKEND"
	redisAddrVar     = "REDIS_ADDR"
	redisPasswordVar = "REDIS_PASSWORD"
	redisDBVar       = "REDIS_DB"
	cachePrefixVar   = "CACHE_PREFIX"
	logoutChannelVar = "LOGOUT_CHANNEL"
	notifyTimeoutVar = "NOTIFY_TIMEOUT"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig covers the verification cache and the Redis connection shared with the
// forced-logout publisher.
type CacheConfig interface {
	GetCacheBackend() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetCachePrefix() string
	GetLogoutChannel() string
	GetNotifyTimeout() time.Duration
}

type Cache struct {
	v *viper.Viper
}

var _ CacheConfig = Cache{}

func (c Cache) GetCacheBackend() string {
	return strings.ToLower(c.v.GetString(cacheBackendVar))
}

func (c Cache) GetRedisAddr() string {
	return c.v.GetString(redisAddrVar)
}

func (c Cache) GetRedisPassword() string {
	return c.v.GetString(redisPasswordVar)
}

func (c Cache) GetRedisDB() int {
	return c.v.GetInt(redisDBVar)
}

func (c Cache) GetCachePrefix() string {
	return c.v.GetString(cachePrefixVar)
}

func (c Cache) GetLogoutChannel() string {
	return c.v.GetString(logoutChannelVar)
}

func (c Cache) GetNotifyTimeout() time.Duration {
	return c.v.GetDuration(notifyTimeoutVar)
}
