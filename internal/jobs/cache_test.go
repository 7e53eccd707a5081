package jobs

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

// fakeClock drives cache freshness deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestCache(clock *fakeClock) *StatusCache {
	return NewStatusCache(5*time.Second, 1000, 100, clock.Now)
}

// ==========================
// Freshness Tests
// ==========================

func TestCache_HitWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(clock)

	payload := []byte(`{"job_id":"abc123","status":"running","progress":0.45}`)
	cache.Put("user-1", "abc123", payload)

	clock.Advance(4999 * time.Millisecond)

	got, ok := cache.Get("user-1", "abc123")
	assert.True(t, ok)
	assert.Equal(t, payload, got, "hit must return the stored bytes unchanged")
}

func TestCache_MissAtTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(clock)

	cache.Put("user-1", "abc123", []byte(`{"status":"running"}`))

	clock.Advance(5 * time.Second)

	_, ok := cache.Get("user-1", "abc123")
	assert.False(t, ok, "entry at exactly TTL age is stale")
}

func TestCache_MissForUnknownKey(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(clock)

	_, ok := cache.Get("user-1", "nope")
	assert.False(t, ok)
}

func TestCache_RefreshRestartsTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(clock)

	cache.Put("user-1", "abc123", []byte(`{"status":"running"}`))
	clock.Advance(6 * time.Second)

	refreshed := []byte(`{"status":"done"}`)
	cache.Put("user-1", "abc123", refreshed)
	clock.Advance(3 * time.Second)

	got, ok := cache.Get("user-1", "abc123")
	assert.True(t, ok)
	assert.Equal(t, refreshed, got)
}

// ==========================
// Isolation Tests
// ==========================

func TestCache_KeysScopedByUser(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(clock)

	cache.Put("user-1", "abc123", []byte(`{"owner":"user-1"}`))

	// Same job ID under a different user never sees the other entry.
	_, ok := cache.Get("user-2", "abc123")
	assert.False(t, ok)
}

// ==========================
// Eviction Tests
// ==========================

func TestCache_EvictsOldestOverCapacity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(clock)

	// Fill to capacity with strictly increasing timestamps.
	for i := 0; i < 1000; i++ {
		cache.Put("user-1", fmt.Sprintf("job-%04d", i), []byte(`{}`))
		clock.Advance(time.Millisecond)
	}
	assert.Equal(t, 1000, cache.Len())

	// Crossing the threshold sweeps the 100 oldest.
	cache.Put("user-1", "job-1000", []byte(`{}`))
	assert.Equal(t, 901, cache.Len())

	// The 100 oldest are gone, everything newer survives.
	for i := 0; i < 100; i++ {
		_, ok := cache.Get("user-1", fmt.Sprintf("job-%04d", i))
		assert.False(t, ok, "job-%04d should have been evicted", i)
	}
	_, ok := cache.Get("user-1", "job-0100")
	assert.True(t, ok)
	_, ok = cache.Get("user-1", "job-1000")
	assert.True(t, ok)
}

func TestCache_SizeNeverExceedsCapacityAfterWrite(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(clock)

	for i := 0; i < 2500; i++ {
		cache.Put("user-1", fmt.Sprintf("job-%04d", i), []byte(`{}`))
		clock.Advance(time.Millisecond)
		assert.LessOrEqual(t, cache.Len(), 1000)
	}
}
