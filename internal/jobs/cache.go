package jobs

import (
	"sort"
	"sync"
	"time"

	"dartsight/internal/common/metrics"
)

// Clock lets tests drive cache freshness deterministically.
type Clock func() time.Time

type cacheEntry struct {
	data      []byte
	fetchedAt time.Time
}

// StatusCache deduplicates upstream calls while clients poll job status.
// Entries are keyed by user and job so job IDs colliding across users can
// never leak another user's payload. An entry is fresh for ttl after the
// fetch that stored it; staleness is purely time based, nothing invalidates
// entries on status transitions.
//
// The map is mutex-guarded because handlers run on concurrent goroutines.
// Two goroutines missing the same key both fetch upstream; the upstream read
// is idempotent so the duplicate fetch is tolerated rather than coordinated.
type StatusCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	evictBatch int
	now        Clock
}

// NewStatusCache constructs a cache with explicit TTL and capacity
// parameters. Pass time.Now as the clock outside of tests.
func NewStatusCache(ttl time.Duration, maxEntries, evictBatch int, now Clock) *StatusCache {
	return &StatusCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		evictBatch: evictBatch,
		now:        now,
	}
}

func cacheKey(userID, jobID string) string {
	return userID + ":" + jobID
}

// Get returns the stored payload when it is still fresh. The returned bytes
// are exactly what Put stored, never re-encoded.
func (c *StatusCache) Get(userID, jobID string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey(userID, jobID)]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.data, true
}

// Put stores a freshly fetched payload and runs the capacity sweep: when the
// entry count exceeds maxEntries, the evictBatch oldest entries by fetch
// timestamp are removed. The sweep is triggered on write, there is no
// background task.
func (c *StatusCache) Put(userID, jobID string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(userID, jobID)] = cacheEntry{data: data, fetchedAt: c.now()}

	if len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}
}

func (c *StatusCache) evictOldestLocked() {
	type aged struct {
		key       string
		fetchedAt time.Time
	}

	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, fetchedAt: e.fetchedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].fetchedAt.Before(all[j].fetchedAt)
	})

	n := c.evictBatch
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.entries, a.key)
	}
	metrics.JobCacheEvictions.Add(float64(n))
}

// Len returns the current entry count.
func (c *StatusCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
