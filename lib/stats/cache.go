package stats

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultTTL is the default validity window of cached values
const DefaultTTL = 300 * time.Second

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL cache. Values are stored in an xsync.MapOf, expiry times in a
// map-heap so that Evict can drop expired entries oldest first without scanning
// the whole map. Expired entries are never returned, even before eviction.
type Cache[V any] struct {
	ttl     time.Duration
	entries *xsync.MapOf[string, cacheEntry[V]]

	mu     sync.Mutex // guards expiry
	expiry *expiryHeap

	now func() time.Time
}

// NewCache creates a cache. A ttl <= 0 selects DefaultTTL.
func NewCache[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		ttl:     ttl,
		entries: xsync.NewMapOf[string, cacheEntry[V]](),
		expiry:  newExpiryHeap(),
		now:     time.Now,
	}
}

// TTL returns the validity window of the cache
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Get returns a value if it is present and not expired
func (c *Cache[V]) Get(key string) (V, bool) {
	e, ok := c.entries.Load(key)
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value valid for the cache TTL
func (c *Cache[V]) Set(key string, value V) {
	expiresAt := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Store(key, cacheEntry[V]{value: value, expiresAt: expiresAt})
	c.expiry.schedule(key, expiresAt)
}

// GetOrCompute returns the cached value for key or computes and caches it.
// cached reports whether the value came from the cache. Errors are not cached.
func (c *Cache[V]) GetOrCompute(key string, compute func() (V, error)) (value V, cached bool, err error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := compute()
	if err != nil {
		return v, false, err
	}
	c.Set(key, v)
	return v, false, nil
}

// Invalidate removes a key from the cache
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Delete(key)
	c.expiry.remove(key)
}

// Len returns the number of stored entries including expired, not yet evicted ones
func (c *Cache[V]) Len() int { return c.entries.Size() }

// Evict removes all expired entries and returns how many were removed
func (c *Cache[V]) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := c.expiry.popExpired(c.now())
	for _, key := range expired {
		c.entries.Delete(key)
	}
	return len(expired)
}

// Run evicts expired entries every interval until ctx is done
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Evict(); n > 0 {
				log.Debugf("evicted %d expired cache entries", n)
			}
		}
	}
}
