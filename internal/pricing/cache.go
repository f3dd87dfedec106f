package pricing

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCacheTTL is how long a valuation stays servable before a
	// fresh fetch is required.
	DefaultCacheTTL = time.Hour

	// DefaultCacheSize bounds the number of distinct cards kept.
	DefaultCacheSize = 256
)

// Cache holds recent valuations keyed by card name and set. Entries expire
// after a fixed TTL; an expired entry is never served. The cache is safe
// for concurrent use and is injected into the Aggregator at construction so
// its lifecycle stays explicit.
type Cache struct {
	lru *expirable.LRU[string, *Valuation]
}

// NewCache creates a bounded TTL cache. Non-positive arguments fall back to
// the defaults.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{lru: expirable.NewLRU[string, *Valuation](size, nil, ttl)}
}

// Get returns the live valuation for key, if any.
func (c *Cache) Get(key string) (*Valuation, bool) {
	return c.lru.Get(key)
}

// Put stores a valuation under key with the current timestamp.
func (c *Cache) Put(key string, v *Valuation) {
	c.lru.Add(key, v)
}

// Purge drops every entry. Used between tests and on explicit reset.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// CacheKey builds the canonical cache key for a card. Cards without a known
// set share the "unknown" placeholder so repeated scans of the same card
// still hit the cache.
func CacheKey(cardName, setName string) string {
	if setName == "" {
		setName = "unknown"
	}
	return cardName + "_" + setName
}
