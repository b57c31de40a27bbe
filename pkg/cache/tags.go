package cache

import (
	"sync"
	"time"

	"kurp-hq/kurp/pkg/telemetry/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Tags caches upscale decisions per backend resource id for a fixed TTL.
type Tags struct {
	mu   sync.RWMutex
	lru  *expirable.LRU[string, bool]
	size int
	ttl  time.Duration

	metrics *metrics.Collector
}

// NewTags creates a decision cache holding at most size entries, each
// valid for ttl.
func NewTags(size int, ttl time.Duration, collector *metrics.Collector) *Tags {
	return &Tags{
		lru:     expirable.NewLRU[string, bool](size, nil, ttl),
		size:    size,
		ttl:     ttl,
		metrics: collector,
	}
}

// Get returns the cached decision for id.
func (t *Tags) Get(id string) (upscale, ok bool) {
	t.mu.RLock()
	upscale, ok = t.lru.Get(id)
	t.mu.RUnlock()

	if ok {
		t.metrics.RecordCacheHit(NameTags)
	} else {
		t.metrics.RecordCacheMiss(NameTags)
	}
	return upscale, ok
}

// Peek returns the cached decision for id without counting a hit or miss.
func (t *Tags) Peek(id string) (upscale, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lru.Peek(id)
}

// Set stores the decision for id.
func (t *Tags) Set(id string, upscale bool) {
	t.mu.RLock()
	evicted := t.lru.Add(id, upscale)
	n := t.lru.Len()
	t.mu.RUnlock()

	if evicted {
		t.metrics.RecordCacheEviction(NameTags)
	}
	t.metrics.UpdateCacheSize(NameTags, n)
}

// Invalidate drops every decision.
func (t *Tags) Invalidate() {
	t.mu.RLock()
	t.lru.Purge()
	t.mu.RUnlock()

	t.metrics.RecordCacheInvalidation(NameTags)
	t.metrics.UpdateCacheSize(NameTags, 0)
}

// Reconfigure applies new bounds and clears the cache. A changed TTL needs
// a fresh LRU; the expiry goroutine of the old one keeps running.
func (t *Tags) Reconfigure(size int, ttl time.Duration) {
	t.mu.Lock()
	if ttl != t.ttl {
		t.lru = expirable.NewLRU[string, bool](size, nil, ttl)
		t.ttl = ttl
	} else {
		t.lru.Purge()
		t.lru.Resize(size)
	}
	t.size = size
	t.mu.Unlock()

	t.metrics.RecordCacheInvalidation(NameTags)
	t.metrics.UpdateCacheSize(NameTags, 0)
}

// Len returns the number of cached decisions, including expired entries
// not yet reaped.
func (t *Tags) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lru.Len()
}
