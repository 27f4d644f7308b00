package terraform

import "sync"

// IDMapCache caches parsed documents keyed by source identity plus a
// modification marker. Entries are immutable once stored: a refresh
// replaces the entry wholesale, so concurrent readers never observe a
// half-built map.
type IDMapCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	marker string
	value  Discovered
}

// NewIDMapCache creates an empty cache.
func NewIDMapCache() *IDMapCache {
	return &IDMapCache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached result for a source if its marker still matches.
func (c *IDMapCache) Get(identity, marker string) (*Discovered, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[identity]
	if !ok || entry.marker != marker {
		return nil, false
	}
	value := entry.value
	return &value, true
}

// Put stores a freshly parsed result, replacing any stale entry.
func (c *IDMapCache) Put(identity, marker string, value *Discovered) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[identity] = cacheEntry{marker: marker, value: *value}
}

// Len returns the number of cached sources.
func (c *IDMapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
