package flow

import "time"

// FieldsCache provides an abstraction for caching a campaign's field list
// so evaluation requests don't hit the store on every call. Implementations
// can be in-memory, Redis, or anything else.
type FieldsCache interface {
	// Get retrieves cached fields, returns nil if cache miss or expired
	Get(campaignID string) []Field

	// Set stores a campaign's fields in cache
	Set(campaignID string, fields []Field)

	// Invalidate clears one campaign's entry, forcing a refresh on next Get
	Invalidate(campaignID string)

	// InvalidateAll clears the whole cache
	InvalidateAll()
}

// CacheConfig holds configuration for cache behavior.
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Set to 0 for no expiration (manual invalidation only).
	TTL time.Duration
}

// DefaultCacheConfig returns sensible defaults for field caching.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL: 0, // only invalidate on mutations
	}
}
