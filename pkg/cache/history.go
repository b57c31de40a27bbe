package cache

import (
	"fmt"

	"kurp-hq/kurp/pkg/telemetry/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache names used as the "cache" metric label.
const (
	NameHistory = "history"
	NameTags    = "tags"
)

// Invalidator is anything that can be cleared wholesale.
type Invalidator interface {
	Invalidate()
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func()

// Invalidate calls f.
func (f InvalidatorFunc) Invalidate() { f() }

// History remembers which image paths (path plus raw query) have already
// been served upscaled. A client only holds a validator for the rewritten
// response after such a reply, so conditional headers are forwarded only
// for recorded paths.
type History struct {
	lru     *lru.Cache[string, struct{}]
	metrics *metrics.Collector
}

// NewHistory creates a history bounded to size entries.
func NewHistory(size int, collector *metrics.Collector) (*History, error) {
	c, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create history cache: %w", err)
	}
	return &History{lru: c, metrics: collector}, nil
}

// Contains reports whether key was recorded. It counts as a use for the
// LRU order.
func (h *History) Contains(key string) bool {
	if _, ok := h.lru.Get(key); ok {
		h.metrics.RecordCacheHit(NameHistory)
		return true
	}
	h.metrics.RecordCacheMiss(NameHistory)
	return false
}

// Record marks key as served upscaled.
func (h *History) Record(key string) {
	if h.lru.Add(key, struct{}{}) {
		h.metrics.RecordCacheEviction(NameHistory)
	}
	h.metrics.UpdateCacheSize(NameHistory, h.lru.Len())
}

// Invalidate forgets every recorded path.
func (h *History) Invalidate() {
	h.lru.Purge()
	h.metrics.RecordCacheInvalidation(NameHistory)
	h.metrics.UpdateCacheSize(NameHistory, 0)
}

// Resize changes the bound, dropping the least recently used entries when
// shrinking.
func (h *History) Resize(size int) {
	if size < 1 {
		return
	}
	for range h.lru.Resize(size) {
		h.metrics.RecordCacheEviction(NameHistory)
	}
	h.metrics.UpdateCacheSize(NameHistory, h.lru.Len())
}

// Len returns the number of recorded paths.
func (h *History) Len() int {
	return h.lru.Len()
}
