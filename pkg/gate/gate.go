package gate

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"kurp-hq/kurp/pkg/backend"
	"kurp-hq/kurp/pkg/cache"
	"kurp-hq/kurp/pkg/telemetry/tracing"

	"golang.org/x/sync/singleflight"
)

// Gate decides per resource whether an image may be upscaled. When an
// upscale tag is configured only resources whose book or series carries
// that tag qualify; the answer is cached per resource.
type Gate struct {
	tag     string
	source  backend.TagSource
	tags    *cache.Tags
	history *cache.History
	group   singleflight.Group

	// generation advances on every invalidation so that lookups started
	// before it neither share a flight with nor write into the new epoch.
	generation atomic.Uint64

	logger *slog.Logger
	tracer *tracing.Tracer
}

// New creates a gate. An empty tag admits every resource without calling
// the backend. history may be nil.
func New(tag string, source backend.TagSource, tags *cache.Tags, history *cache.History, logger *slog.Logger, tracer *tracing.Tracer) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		tag:     strings.TrimSpace(tag),
		source:  source,
		tags:    tags,
		history: history,
		logger:  logger.With("component", "gate"),
		tracer:  tracer,
	}
}

// Enabled reports whether an upscale tag is configured.
func (g *Gate) Enabled() bool {
	return g.tag != ""
}

// ShouldUpscale reports whether the resource carries the upscale tag.
// Concurrent lookups of the same resource with the same credentials share
// one backend round trip. Failed lookups are not cached.
func (g *Gate) ShouldUpscale(ctx context.Context, resourceID string, creds backend.Credentials) (bool, error) {
	if !g.Enabled() {
		return true, nil
	}

	if ok, hit := g.tags.Get(resourceID); hit {
		return ok, nil
	}

	ctx, span := g.tracer.Start(ctx, "gate.lookup")
	defer span.End()
	tracing.SetBackendAttributes(span, g.source.Name(), resourceID)
	tracing.SetCacheAttributes(span, false, cache.NameTags)

	gen := g.generation.Load()
	// A flight carries its first caller's credentials, so callers only share
	// it when theirs are identical.
	key := strconv.FormatUint(gen, 10) + "/" + resourceID + "/" + creds.Fingerprint()

	// The flight outlives any single caller; the backend client timeout
	// bounds it.
	flightCtx := context.WithoutCancel(ctx)

	v, err, _ := g.group.Do(key, func() (any, error) {
		// A concurrent flight may have filled the cache while this one waited.
		if ok, hit := g.tags.Peek(resourceID); hit {
			return ok, nil
		}

		tags, err := g.source.Tags(flightCtx, resourceID, creds)
		if err != nil {
			return false, err
		}

		ok := containsFold(tags, g.tag)
		if g.generation.Load() == gen {
			g.tags.Set(resourceID, ok)
		}
		g.logger.DebugContext(flightCtx, "upscale decision resolved",
			"resource_id", resourceID,
			"upscale", ok,
		)
		return ok, nil
	})
	if err != nil {
		tracing.SetError(span, err)
		return false, err
	}

	return v.(bool), nil
}

// InvalidateAll clears the decision cache and the call history. It runs
// after a tag edit, since an edit may flip decisions for images a client
// already holds.
func (g *Gate) InvalidateAll() {
	g.generation.Add(1)
	g.tags.Invalidate()
	if g.history != nil {
		g.history.Invalidate()
	}
	g.logger.Info("upscale decisions invalidated")
}

func containsFold(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(strings.TrimSpace(t), want) {
			return true
		}
	}
	return false
}
