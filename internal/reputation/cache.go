package reputation

import (
	"sync"
	"time"
)

// DefaultTTL bounds how long a cached oracle answer stays fresh.
const DefaultTTL = 10 * time.Minute

type cacheEntry struct {
	result  Result
	fetched time.Time
}

// Cache holds oracle results with a fixed TTL. Expired entries are pruned
// lazily on lookup.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates a Cache. ttl ≤ 0 falls back to the default.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns a fresh cached result for subject.
func (c *Cache) Get(subject string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[subject]
	if !ok {
		return Result{}, false
	}
	if c.now().Sub(e.fetched) >= c.ttl {
		delete(c.entries, subject)
		return Result{}, false
	}
	return e.result, true
}

// Put stores a result for subject.
func (c *Cache) Put(subject string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[subject] = cacheEntry{result: r, fetched: c.now()}
}
