package application

import (
	"fmt"
	"sync"
	"time"
)

// queryCache keeps the most recent successful listing per filter so reads can
// degrade to a stale view while the store is unreachable.
type queryCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]queryCacheEntry
}

type queryCacheEntry struct {
	alerts    []Alert
	expiresAt time.Time
}

func newQueryCache(ttl time.Duration, maxEntries int, now func() time.Time) *queryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 64
	}
	if now == nil {
		now = time.Now
	}
	return &queryCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]queryCacheEntry),
	}
}

func (c *queryCache) Get(key string) ([]Alert, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneAlerts(entry.alerts), true
}

func (c *queryCache) Store(key string, alerts []Alert) {
	if c == nil {
		return
	}
	cloned := cloneAlerts(alerts)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = queryCacheEntry{alerts: cloned, expiresAt: expiry}
}

// evictOneLocked drops the entry closest to expiry.
func (c *queryCache) evictOneLocked() {
	var (
		victim string
		oldest time.Time
		found  bool
	)
	for key, entry := range c.entries {
		if !found || entry.expiresAt.Before(oldest) {
			victim = key
			oldest = entry.expiresAt
			found = true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

func cloneAlerts(alerts []Alert) []Alert {
	if len(alerts) == 0 {
		return nil
	}
	cloned := make([]Alert, len(alerts))
	copy(cloned, alerts)
	for i := range cloned {
		cloned[i].Position = clonePosition(cloned[i].Position)
		if cloned[i].ResolvedAt != nil {
			resolvedAt := *cloned[i].ResolvedAt
			cloned[i].ResolvedAt = &resolvedAt
		}
	}
	return cloned
}

// cacheKey canonicalizes a filter for cache lookup.
func (f QueryFilter) cacheKey() string {
	from, to := int64(0), int64(0)
	if f.From != nil {
		from = f.From.Unix()
	}
	if f.To != nil {
		to = f.To.Unix()
	}
	return fmt.Sprintf("%s|%d|%d", f.Category, from, to)
}
