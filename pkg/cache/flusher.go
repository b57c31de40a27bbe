package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Flusher invalidates a set of caches on a cron schedule. Tag edits made
// directly on the backend never pass through the proxy, so a periodic
// flush bounds how long a stale decision can survive.
type Flusher struct {
	schedule string
	targets  []Invalidator

	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewFlusher creates a flusher for the given cron expression. An empty
// schedule disables it.
func NewFlusher(schedule string, logger *slog.Logger, targets ...Invalidator) *Flusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flusher{
		schedule: schedule,
		targets:  targets,
		cron:     cron.New(),
		logger:   logger.With("component", "cache.flusher"),
	}
}

// Start schedules the flush. It stops when ctx is done or Stop is called.
//
// Common cron expressions:
//   - "0 * * * *"   - Hourly
//   - "*/15 * * * *" - Every 15 minutes
//   - "@every 10m"  - Every 10 minutes
func (f *Flusher) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.schedule == "" {
		f.logger.Debug("flush schedule not configured, skipping scheduler")
		return nil
	}
	if f.running {
		return nil
	}

	if _, err := cron.ParseStandard(f.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", f.schedule, err)
	}

	if _, err := f.cron.AddFunc(f.schedule, f.Flush); err != nil {
		return fmt.Errorf("failed to schedule cache flush: %w", err)
	}

	f.cron.Start()
	f.running = true
	f.logger.Info("cache flusher started", "schedule", f.schedule)

	go func() {
		<-ctx.Done()
		f.Stop()
	}()
	return nil
}

// Flush invalidates every target now.
func (f *Flusher) Flush() {
	for _, t := range f.targets {
		t.Invalidate()
	}
	f.logger.Info("caches flushed", "count", len(f.targets))
}

// Stop halts the schedule and waits for a running flush to finish.
func (f *Flusher) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		<-f.cron.Stop().Done()
		f.running = false
		f.logger.Info("cache flusher stopped")
	}
}

// NextRun returns the next scheduled flush, or nil when none is scheduled.
func (f *Flusher) NextRun() *time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.cron.Entries()
	if !f.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
