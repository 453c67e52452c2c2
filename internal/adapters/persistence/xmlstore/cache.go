package xmlstore

import (
	"sync"
	"time"
)

// Default expiry policy
const (
	DefaultSlidingExpiry  = 10 * time.Minute
	DefaultAbsoluteExpiry = time.Hour
)

type cacheEntry struct {
	value      interface{}
	loadedAt   time.Time
	lastAccess time.Time
}

// Cache keeps decoded documents keyed by file name.
// An entry expires when it has not been read for the sliding window, or when
// the absolute window since it was stored has passed, whichever comes first.
type Cache struct {
	mu       sync.Mutex
	sliding  time.Duration
	absolute time.Duration
	now      func() time.Time
	entries  map[string]*cacheEntry
	gens     map[string]uint64
}

// NewCache creates a cache. A nil clock means time.Now.
func NewCache(sliding, absolute time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		sliding:  sliding,
		absolute: absolute,
		now:      now,
		entries:  make(map[string]*cacheEntry),
		gens:     make(map[string]uint64),
	}
}

// Get returns the live entry for key and slides its expiry
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.now()
	if c.expired(e, now) {
		delete(c.entries, key)
		return nil, false
	}
	e.lastAccess = now
	return e.value, true
}

// Set stores value under key, restarting both windows
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &cacheEntry{value: value, loadedAt: now, lastAccess: now}
}

// Generation returns the eviction count of key. Read it before loading the
// value from its source and pass it to SetIfGeneration.
func (c *Cache) Generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

// SetIfGeneration stores value only when key has not been removed since gen
// was read. It reports whether the value was stored.
func (c *Cache) SetIfGeneration(key string, value interface{}, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[key] != gen {
		return false
	}
	now := c.now()
	c.entries[key] = &cacheEntry{value: value, loadedAt: now, lastAccess: now}
	return true
}

// Remove evicts key and bumps its generation
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
}

// Sweep drops every expired entry and returns how many were removed
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) expired(e *cacheEntry, now time.Time) bool {
	if c.sliding > 0 && now.Sub(e.lastAccess) >= c.sliding {
		return true
	}
	if c.absolute > 0 && now.Sub(e.loadedAt) >= c.absolute {
		return true
	}
	return false
}
