package application

import (
	"testing"
	"time"
)

func TestQueryCache_StoreAndGet(t *testing.T) {
	reference := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := reference
	cache := newQueryCache(time.Minute, 8, func() time.Time { return current })

	key := QueryFilter{Category: "fire"}.cacheKey()
	cache.Store(key, []Alert{{ID: "alert-1", Category: CategoryFire, Version: 1}})

	cached, ok := cache.Get(key)
	if !ok || len(cached) != 1 || cached[0].ID != "alert-1" {
		t.Fatalf("expected cached entry, got %v %v", cached, ok)
	}

	if _, ok := cache.Get(QueryFilter{}.cacheKey()); ok {
		t.Fatalf("unexpected hit for a different filter")
	}
}

func TestQueryCache_EntriesExpire(t *testing.T) {
	reference := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := reference
	cache := newQueryCache(time.Minute, 8, func() time.Time { return current })

	key := QueryFilter{}.cacheKey()
	cache.Store(key, []Alert{{ID: "alert-1"}})

	current = reference.Add(2 * time.Minute)
	if _, ok := cache.Get(key); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestQueryCache_ReturnsCopies(t *testing.T) {
	cache := newQueryCache(time.Minute, 8, nil)

	key := QueryFilter{}.cacheKey()
	cache.Store(key, []Alert{{ID: "alert-1", Position: &Position{Latitude: 1, Longitude: 2}}})

	first, _ := cache.Get(key)
	first[0].Position.Latitude = 99

	second, _ := cache.Get(key)
	if second[0].Position.Latitude != 1 {
		t.Fatalf("cache entries must not share position pointers")
	}
}

func TestQueryCache_EvictsAtCapacity(t *testing.T) {
	reference := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := reference
	cache := newQueryCache(time.Minute, 2, func() time.Time { return current })

	cache.Store("a", []Alert{{ID: "a"}})
	current = current.Add(time.Second)
	cache.Store("b", []Alert{{ID: "b"}})
	current = current.Add(time.Second)
	cache.Store("c", []Alert{{ID: "c"}})

	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected the oldest entry to be evicted")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Fatalf("expected the newest entry to survive")
	}
}
