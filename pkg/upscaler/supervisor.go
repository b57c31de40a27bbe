package upscaler

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"kurp-hq/kurp/pkg/telemetry/metrics"
	"kurp-hq/kurp/pkg/telemetry/tracing"
	"kurp-hq/kurp/pkg/transcode"
)

// Supervisor owns zero or one live Worker. It replaces the Worker when the
// configuration changes and restarts it with the last good settings when
// its engine faults.
type Supervisor struct {
	factory Factory

	mu       sync.RWMutex
	worker   *Worker
	settings *Settings
	closed   bool

	wg sync.WaitGroup

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// NewSupervisor creates an uninitialized supervisor. A nil factory selects
// NewEngine.
func NewSupervisor(factory Factory, logger *slog.Logger, collector *metrics.Collector, tracer *tracing.Tracer) *Supervisor {
	if factory == nil {
		factory = NewEngine
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		factory: factory,
		logger:  logger,
		metrics: collector,
		tracer:  tracer,
	}
}

// Init builds an engine from settings and swaps it in. The previous Worker,
// if any, finishes its queued jobs before it is released. When the engine
// cannot be built the current Worker stays in place.
func (s *Supervisor) Init(settings Settings) error {
	engine, err := s.factory(settings)
	if err != nil {
		return fmt.Errorf("failed to initialize %s engine: %w", settings.Upscaler, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = engine.Close()
		return ErrWorkerClosed
	}
	old := s.worker
	s.settings = &settings
	s.worker = s.startLocked(engine, settings)
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	s.logger.Info("upscaler initialized", "engine", engine.Name(), "scale", engine.Scale())
	return nil
}

// Deinitialize stops the current Worker. Later jobs fail with
// ErrNotInitialized until Init is called again.
func (s *Supervisor) Deinitialize() {
	s.mu.Lock()
	old := s.worker
	s.worker = nil
	s.settings = nil
	s.mu.Unlock()

	if old != nil {
		old.Close()
		s.logger.Info("upscaler deinitialized", "engine", old.Engine())
	}
}

// Close deinitializes the supervisor and waits for its monitors to exit.
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.Deinitialize()
	s.wg.Wait()
}

// Ready reports whether a Worker is running.
func (s *Supervisor) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.worker != nil
}

// Ping is a readiness check.
func (s *Supervisor) Ping(ctx context.Context) error {
	if !s.Ready() {
		return ErrNotInitialized
	}
	return nil
}

// Upscale implements transcode.Upscaler. A job that hits an engine fault
// fails; the next job runs on the restarted Worker.
func (s *Supervisor) Upscale(ctx context.Context, img image.Image, source transcode.Format) (image.Image, transcode.Format, error) {
	s.mu.RLock()
	w := s.worker
	s.mu.RUnlock()

	if w == nil {
		if w = s.revive(); w == nil {
			return nil, transcode.FormatUnknown, ErrNotInitialized
		}
	}
	return w.Upscale(ctx, img, source)
}

// revive retries building a Worker when an earlier restart failed. It
// returns nil when the supervisor was never initialized or the retry fails.
func (s *Supervisor) revive() *Worker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.worker != nil || s.settings == nil || s.closed {
		return s.worker
	}

	engine, err := s.factory(*s.settings)
	if err != nil {
		s.logger.Error("failed to restart upscaler", "error", err)
		return nil
	}
	s.metrics.RecordWorkerRestart()
	s.worker = s.startLocked(engine, *s.settings)
	return s.worker
}

// startLocked starts a Worker and a goroutine that restarts it on fault.
// s.mu must be held.
func (s *Supervisor) startLocked(engine Engine, settings Settings) *Worker {
	w := NewWorker(engine, settings, s.logger, s.metrics, s.tracer)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-w.Done()
		if w.Err() != nil {
			s.restart(w)
		}
	}()
	return w
}

// restart replaces a faulted Worker with a new one built from the last
// good settings, unless it has been replaced in the meantime.
func (s *Supervisor) restart(failed *Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.worker != failed || s.closed || s.settings == nil {
		return
	}

	s.logger.Warn("restarting upscaler after engine fault",
		"engine", failed.Engine(),
		"error", failed.Err(),
	)
	s.metrics.RecordWorkerRestart()

	engine, err := s.factory(*s.settings)
	if err != nil {
		s.logger.Error("failed to restart upscaler", "error", err)
		s.worker = nil
		return
	}
	s.worker = s.startLocked(engine, *s.settings)
}
