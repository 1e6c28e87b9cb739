package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"p2pquotes/internal/provider"
)

// Entry is the last good result stored for one key.
type Entry struct {
	Data      provider.QuoteSet
	Timestamp time.Time
}

// Age is how old the entry is at now.
func (e Entry) Age(now time.Time) time.Duration { return now.Sub(e.Timestamp) }

// Cache keeps the last good QuoteSet per key.
// Entries older than TTL are no longer fresh but stay readable until the
// retention window drops them, so degraded paths can still serve them.
type Cache struct {
	TTL time.Duration

	items *gocache.Cache
}

// New builds a cache. Retention below TTL is raised to TTL.
func New(ttl, retention time.Duration) *Cache {
	if retention < ttl {
		retention = ttl
	}
	cleanup := retention
	if cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &Cache{TTL: ttl, items: gocache.New(retention, cleanup)}
}

// Get returns the entry for key whether or not it is still fresh.
func (c *Cache) Get(key string) (Entry, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return Entry{}, false
	}
	e, ok := v.(Entry)
	return e, ok
}

// Fresh returns the entry only while it is younger than TTL.
func (c *Cache) Fresh(key string, now time.Time) (Entry, bool) {
	e, ok := c.Get(key)
	if !ok || e.Age(now) >= c.TTL {
		return Entry{}, false
	}
	return e, true
}

// Put replaces the entry for key.
func (c *Cache) Put(key string, data provider.QuoteSet, now time.Time) {
	c.items.Set(key, Entry{Data: data, Timestamp: now}, gocache.DefaultExpiration)
}

// Len is the number of retained entries, expired or not.
func (c *Cache) Len() int { return c.items.ItemCount() }
