// Package cache holds recently computed lookup results for the duration of
// a query session, so toggling filters does not re-scrape unnecessarily.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/Eric-A99/discogs-preview/internal/types"
)

// Clock abstracts time so eviction behavior is testable deterministically
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// FilterKey builds the composite sub-result key for a filter combination.
// A different query never shares a cache entry at all, so invalidation
// between queries falls out of the keying.
func FilterKey(usOnly, vgPlus bool, releaseID int) string {
	return fmt.Sprintf("us=%t|vg=%t|release=%d", usOnly, vgPlus, releaseID)
}

// entry is the cached state for one query: its per-filter-combination
// results and the timestamp used for TTL and age-based eviction.
type entry struct {
	storedAt time.Time
	results  map[string]*types.LookupResult
}

// Cache is a query-scoped result cache with a bounded time-to-live and a
// bounded entry count. Eviction removes expired entries first, then the
// oldest by timestamp until the cache is under its cap.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	clock      Clock
	entries    map[string]*entry
}

// New creates a cache with the given TTL and entry cap
func New(ttl time.Duration, maxEntries int) *Cache {
	return NewWithClock(ttl, maxEntries, realClock{})
}

// NewWithClock creates a cache using the supplied clock
func NewWithClock(ttl time.Duration, maxEntries int, clock Clock) *Cache {
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

// Get returns the cached result for the query and filter combination
func (c *Cache) Get(query, filterKey string) (*types.LookupResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[query]
	if !ok || c.expired(e) {
		return nil, false
	}
	result, ok := e.results[filterKey]
	return result, ok
}

// Put stores the result for the query and filter combination, evicting as
// needed to stay under the entry cap.
func (c *Cache) Put(query, filterKey string, result *types.LookupResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[query]
	if ok && !c.expired(e) {
		e.results[filterKey] = result
		return
	}

	c.evictLocked()
	c.entries[query] = &entry{
		storedAt: c.clock.Now(),
		results:  map[string]*types.LookupResult{filterKey: result},
	}
}

// Len returns the number of live query entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			n++
		}
	}
	return n
}

func (c *Cache) expired(e *entry) bool {
	return c.clock.Now().Sub(e.storedAt) > c.ttl
}

// evictLocked makes room for one new entry: expired entries go first, then
// the oldest remaining entries until the cache is under its cap.
func (c *Cache) evictLocked() {
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
		}
	}
	for len(c.entries) >= c.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for key, e := range c.entries {
			if oldestKey == "" || e.storedAt.Before(oldest) {
				oldestKey = key
				oldest = e.storedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}
