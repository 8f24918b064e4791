package flow

import (
	"testing"
	"time"
)

var _ FieldsCache = (*InMemoryFieldsCache)(nil)

func TestInMemoryFieldsCache(t *testing.T) {
	cache := NewInMemoryFieldsCache(DefaultCacheConfig())

	if cache.Get("camp-1") != nil {
		t.Error("empty cache should miss")
	}

	cache.Set("camp-1", []Field{{Key: "name", Type: FieldText, Step: 1}})
	got := cache.Get("camp-1")
	if len(got) != 1 || got[0].Key != "name" {
		t.Fatalf("Get() = %+v, want the cached field", got)
	}

	// mutating the returned slice must not touch the cached copy
	got[0].Key = "mutated"
	if again := cache.Get("camp-1"); again[0].Key != "name" {
		t.Error("Get() should return a copy")
	}

	cache.Invalidate("camp-1")
	if cache.Get("camp-1") != nil {
		t.Error("invalidated entry should miss")
	}
}

func TestInMemoryFieldsCacheTTL(t *testing.T) {
	cache := NewInMemoryFieldsCache(CacheConfig{TTL: 10 * time.Millisecond})

	cache.Set("camp-1", []Field{{Key: "name", Type: FieldText, Step: 1}})
	if cache.Get("camp-1") == nil {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(30 * time.Millisecond)
	if cache.Get("camp-1") != nil {
		t.Error("expired entry should miss")
	}
}

func TestInMemoryFieldsCacheInvalidateAll(t *testing.T) {
	cache := NewInMemoryFieldsCache(DefaultCacheConfig())

	cache.Set("camp-1", []Field{{Key: "a", Type: FieldText, Step: 1}})
	cache.Set("camp-2", []Field{{Key: "b", Type: FieldText, Step: 1}})

	cache.InvalidateAll()
	if cache.Get("camp-1") != nil || cache.Get("camp-2") != nil {
		t.Error("InvalidateAll() should clear every entry")
	}
}
