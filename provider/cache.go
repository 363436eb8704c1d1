package provider

import (
	"container/list"
	"sync"
	"time"
)

// ProviderCache keeps initialized providers so credentials are not re-parsed on every call
type ProviderCache interface {
	// Get returns the cached provider, or nil when absent or expired
	Get(providerName, environment string) PaymentProvider
	Set(providerName, environment string, provider PaymentProvider)
	Delete(providerName, environment string)
	// DeleteByProvider drops the provider in every environment, used after a config change
	DeleteByProvider(providerName string)
	Clear()
	Size() int
	Stats() CacheStats
	// Cleanup drops expired entries
	Cleanup()
}

// CacheStats represents cache performance metrics
type CacheStats struct {
	Size        int           `json:"size"`
	MaxSize     int           `json:"max_size"`
	Hits        int64         `json:"hits"`
	Misses      int64         `json:"misses"`
	Evictions   int64         `json:"evictions"`
	TTLExpiries int64         `json:"ttl_expiries"`
	HitRatio    float64       `json:"hit_ratio"`
	TTL         time.Duration `json:"ttl"`
}

type cacheKey struct {
	provider    string
	environment string
}

type cacheEntry struct {
	key      cacheKey
	provider PaymentProvider
	storedAt time.Time
}

// lruProviderCache is a size bounded LRU with an optional TTL. The front of order is the most recently used entry.
type lruProviderCache struct {
	mu      sync.Mutex
	entries map[cacheKey]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	hits, misses, evictions, expiries int64
}

// NewProviderCache creates an in-memory provider cache. maxSize <= 0 means unbounded, ttl <= 0 means no expiry.
func NewProviderCache(maxSize int, ttl time.Duration) ProviderCache {
	return &lruProviderCache{
		entries: make(map[cacheKey]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *lruProviderCache) expired(e *cacheEntry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.storedAt) > c.ttl
}

func (c *lruProviderCache) Get(providerName, environment string) PaymentProvider {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[cacheKey{providerName, environment}]
	if !ok {
		c.misses++
		return nil
	}

	entry := elem.Value.(*cacheEntry)
	if c.expired(entry, c.now()) {
		c.remove(elem)
		c.expiries++
		c.misses++
		return nil
	}

	c.order.MoveToFront(elem)
	c.hits++
	return entry.provider
}

func (c *lruProviderCache) Set(providerName, environment string, provider PaymentProvider) {
	key := cacheKey{providerName, environment}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.provider = provider
		entry.storedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	if c.maxSize > 0 {
		for len(c.entries) >= c.maxSize {
			c.remove(c.order.Back())
			c.evictions++
		}
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:      key,
		provider: provider,
		storedAt: c.now(),
	})
}

func (c *lruProviderCache) Delete(providerName, environment string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[cacheKey{providerName, environment}]; ok {
		c.remove(elem)
	}
}

func (c *lruProviderCache) DeleteByProvider(providerName string) {
	c.removeIf(func(e *cacheEntry) bool { return e.key.provider == providerName })
}

func (c *lruProviderCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.order.Init()
}

func (c *lruProviderCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *lruProviderCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:        len(c.entries),
		MaxSize:     c.maxSize,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		TTLExpiries: c.expiries,
		TTL:         c.ttl,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRatio = float64(c.hits) / float64(total)
	}
	return stats
}

func (c *lruProviderCache) Cleanup() {
	if c.ttl <= 0 {
		return
	}

	now := c.now()
	removed := c.removeIf(func(e *cacheEntry) bool { return c.expired(e, now) })

	c.mu.Lock()
	c.expiries += int64(removed)
	c.mu.Unlock()
}

// removeIf drops every entry matching match and returns how many were dropped
func (c *lruProviderCache) removeIf(match func(*cacheEntry) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if match(elem.Value.(*cacheEntry)) {
			c.remove(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// remove must be called with mu held
func (c *lruProviderCache) remove(elem *list.Element) {
	entry := c.order.Remove(elem).(*cacheEntry)
	delete(c.entries, entry.key)
}
