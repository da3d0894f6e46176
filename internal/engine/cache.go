package engine

import "sync"

// Cache stores the last successful resolution per platform. Implementations
// must treat entries as opaque values: no partial updates, no background
// expiry. Freshness is the reader's concern (Entry.Fresh).
type Cache interface {
	Get(platformID string) (Entry, bool)
	Put(platformID string, entry Entry)
	Invalidate(platformID string)
	InvalidateAll()
	// Entries returns a snapshot of every stored entry keyed by platform ID.
	Entries() map[string]Entry
}

// MemoryCache is the default in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Get(platformID string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[platformID]
	return e, ok
}

func (c *MemoryCache) Put(platformID string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[platformID] = entry
}

func (c *MemoryCache) Invalidate(platformID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, platformID)
}

func (c *MemoryCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

func (c *MemoryCache) Entries() map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Entry, len(c.entries))
	for id, e := range c.entries {
		out[id] = e
	}
	return out
}
