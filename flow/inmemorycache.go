package flow

import (
	"sync"
	"time"
)

// InMemoryFieldsCache is a simple in-memory implementation of FieldsCache.
// Thread-safe for concurrent access.
type InMemoryFieldsCache struct {
	entries map[string]cacheEntry
	config  CacheConfig
	mu      sync.RWMutex
}

type cacheEntry struct {
	fields   []Field
	cachedAt time.Time
}

// NewInMemoryFieldsCache creates a new in-memory fields cache.
func NewInMemoryFieldsCache(config CacheConfig) *InMemoryFieldsCache {
	return &InMemoryFieldsCache{
		entries: make(map[string]cacheEntry),
		config:  config,
	}
}

// Get retrieves cached fields for a campaign, nil on miss or expiry.
func (c *InMemoryFieldsCache) Get(campaignID string) []Field {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[campaignID]
	if !ok {
		return nil
	}

	if c.config.TTL > 0 && time.Since(entry.cachedAt) > c.config.TTL {
		return nil
	}

	// Return copy to prevent external modifications
	fields := make([]Field, len(entry.fields))
	copy(fields, entry.fields)
	return fields
}

// Set stores a campaign's fields in the cache.
func (c *InMemoryFieldsCache) Set(campaignID string, fields []Field) {
	stored := make([]Field, len(fields))
	copy(stored, fields)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[campaignID] = cacheEntry{fields: stored, cachedAt: time.Now()}
}

// Invalidate clears one campaign's entry.
func (c *InMemoryFieldsCache) Invalidate(campaignID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, campaignID)
}

// InvalidateAll clears the whole cache.
func (c *InMemoryFieldsCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
