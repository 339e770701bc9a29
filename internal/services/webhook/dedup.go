package webhook

import (
	"sync"
	"time"
)

// dedupCache remembers finished delivery ids for a short TTL so provider
// redeliveries are acknowledged without touching the journal table.
type dedupCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func newDedupCache(ttl time.Duration) *dedupCache {
	return &dedupCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *dedupCache) seen(id string) bool {
	if c.ttl <= 0 || id == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expires, ok := c.entries[id]
	if !ok {
		return false
	}
	if c.now().After(expires) {
		delete(c.entries, id)
		return false
	}
	return true
}

func (c *dedupCache) add(id string) {
	if c.ttl <= 0 || id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[id] = now.Add(c.ttl)

	// sweep on write keeps the map bounded by the delivery rate over one TTL
	for key, expires := range c.entries {
		if now.After(expires) {
			delete(c.entries, key)
		}
	}
}

func (c *dedupCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
