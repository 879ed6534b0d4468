// Package cache fronts read endpoints with a TTL side-cache keyed by request
// path+query, and exposes the coarse prefix invalidation task mutations rely
// on.
package cache

import (
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TaskListPrefix is the key space invalidated whenever any task mutates.
const TaskListPrefix = "/api/tasks"

// CachedResponse is a stored HTTP response body with enough metadata to
// replay it byte-identically.
type CachedResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// ResponseCache is the store contract the caching middleware and the task
// service invalidation hook operate against.
type ResponseCache interface {
	Get(key string) (*CachedResponse, bool)
	Set(key string, resp *CachedResponse)
	InvalidatePrefix(prefix string) int
}

var _ ResponseCache = (*Cache)(nil)

// Cache implements ResponseCache on top of an in-process TTL store.
type Cache struct {
	logger *slog.Logger
	store  *gocache.Cache
}

// New builds a Cache whose entries expire after ttl and are swept every
// cleanupInterval.
func New(ttl, cleanupInterval time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		logger: logger,
		store:  gocache.New(ttl, cleanupInterval),
	}
}

func (c *Cache) Get(key string) (*CachedResponse, bool) {
	v, found := c.store.Get(key)
	if !found {
		return nil, false
	}
	resp, ok := v.(*CachedResponse)
	return resp, ok
}

func (c *Cache) Set(key string, resp *CachedResponse) {
	c.store.Set(key, resp, gocache.DefaultExpiration)
}

// InvalidatePrefix deletes every entry whose key starts with prefix and
// returns how many were removed. Coarse on purpose: tracking which cached
// filters could match a mutated record costs more than recomputing the lists.
func (c *Cache) InvalidatePrefix(prefix string) int {
	deleted := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			deleted++
		}
	}
	if deleted > 0 {
		c.logger.Debug("Cache invalidated",
			slog.String("prefix", prefix),
			slog.Int("entries", deleted),
		)
	}
	return deleted
}
