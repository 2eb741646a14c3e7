package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var _ Cache = (*MemoryCache)(nil)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-process Cache. Expired entries are dropped lazily on read and
// in bulk by Cleanup.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	nowTime func() time.Time
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.nowTime = nowFunc
	}
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache(options ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expiresAt: c.nowTime().Add(ttl)}
	return nil
}

func (c *MemoryCache) TryGet(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.After(c.nowTime()) {
		c.mu.Lock()
		// re-check: the entry may have been re-set between the two locks
		if cur, still := c.entries[key]; still && !cur.expiresAt.After(c.nowTime()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) RemoveIf(_ context.Context, key, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.value != value || !e.expiresAt.After(c.nowTime()) {
		return false, nil
	}
	delete(c.entries, key)
	return true, nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *MemoryCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowTime()
	removed := 0
	for key, e := range c.entries {
		if !e.expiresAt.After(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is cancelled.
func (c *MemoryCache) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Cleanup(); n > 0 {
				log.Debug().Int("removed", n).Msg("verification cache sweep")
			}
		}
	}
}
