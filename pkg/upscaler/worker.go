package upscaler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"kurp-hq/kurp/pkg/telemetry/metrics"
	"kurp-hq/kurp/pkg/telemetry/tracing"
	"kurp-hq/kurp/pkg/transcode"
)

// job is a single upscale request travelling through the Worker queue.
type job struct {
	ctx    context.Context
	img    image.Image
	source transcode.Format
	reply  chan jobResult
}

type jobResult struct {
	img    image.Image
	format transcode.Format
	err    error
}

// Worker owns one Engine and feeds it one job at a time, in arrival order.
// A Worker stops for good when its engine faults or when Close is called;
// jobs still queued at that moment receive an error instead of hanging.
type Worker struct {
	settings Settings
	engine   Engine
	jobs     chan *job

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	fault error

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// NewWorker starts a worker around engine. The worker takes ownership of
// the engine and closes it when it stops.
func NewWorker(engine Engine, settings Settings, logger *slog.Logger, collector *metrics.Collector, tracer *tracing.Tracer) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	queue := settings.QueueSize
	if queue < 0 {
		queue = 0
	}

	w := &Worker{
		settings: settings,
		engine:   engine,
		jobs:     make(chan *job, queue),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.With("engine", engine.Name()),
		metrics:  collector,
		tracer:   tracer,
	}
	go w.run()
	return w
}

// Upscale queues img and waits for the result. The returned format is the
// configured return format, or source when the worker keeps the original.
func (w *Worker) Upscale(ctx context.Context, img image.Image, source transcode.Format) (image.Image, transcode.Format, error) {
	j := &job{
		ctx:    ctx,
		img:    img,
		source: source,
		reply:  make(chan jobResult, 1),
	}

	select {
	case w.jobs <- j:
		w.metrics.UpdateQueueDepth(len(w.jobs))
	case <-w.quit:
		return nil, transcode.FormatUnknown, w.stoppedErr()
	case <-w.done:
		return nil, transcode.FormatUnknown, w.stoppedErr()
	case <-ctx.Done():
		return nil, transcode.FormatUnknown, ctx.Err()
	}

	select {
	case res := <-j.reply:
		return res.img, res.format, res.err
	case <-w.done:
		// The job may have been answered just before the worker stopped.
		select {
		case res := <-j.reply:
			return res.img, res.format, res.err
		default:
			return nil, transcode.FormatUnknown, w.stoppedErr()
		}
	case <-ctx.Done():
		return nil, transcode.FormatUnknown, ctx.Err()
	}
}

// Done is closed once the worker has stopped and released its engine.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Err returns the engine fault that stopped the worker, or nil if it is
// still running or was closed normally.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fault
}

// Close stops accepting jobs, finishes the ones already queued and releases
// the engine. It blocks until the worker has stopped.
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.quit) })
	<-w.done
}

// Engine returns the name of the engine this worker drives.
func (w *Worker) Engine() string {
	return w.engine.Name()
}

func (w *Worker) run() {
	defer close(w.done)
	defer func() {
		if err := w.engine.Close(); err != nil {
			w.logger.Warn("failed to close engine", "error", err)
		}
	}()

	for {
		select {
		case j := <-w.jobs:
			w.metrics.UpdateQueueDepth(len(w.jobs))
			if !w.process(j) {
				w.failQueued()
				return
			}
		case <-w.quit:
			w.drain()
			return
		}
	}
}

// drain runs every job that was queued before Close. A fault while
// draining fails the rest.
func (w *Worker) drain() {
	for {
		select {
		case j := <-w.jobs:
			if !w.process(j) {
				w.failQueued()
				return
			}
		default:
			return
		}
	}
}

// failQueued answers every waiting job after an engine fault.
func (w *Worker) failQueued() {
	err := w.stoppedErr()
	for {
		select {
		case j := <-w.jobs:
			j.reply <- jobResult{err: err}
		default:
			w.metrics.UpdateQueueDepth(0)
			return
		}
	}
}

// process runs a single job and reports whether the engine is still usable.
func (w *Worker) process(j *job) (healthy bool) {
	if err := j.ctx.Err(); err != nil {
		j.reply <- jobResult{err: err}
		return true
	}

	ctx, span := w.tracer.Start(j.ctx, "upscaler.job")
	defer span.End()
	tracing.SetEngineAttributes(span, w.engine.Name(), w.engine.Scale())

	jobCtx := ctx
	if w.settings.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.settings.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := w.safeProcess(jobCtx, j.img)
	if err != nil {
		// The caller went away; the engine itself is fine.
		if j.ctx.Err() != nil {
			j.reply <- jobResult{err: j.ctx.Err()}
			return true
		}

		fault := &WorkerFaultError{Engine: w.engine.Name(), Err: err}
		w.mu.Lock()
		w.fault = fault
		w.mu.Unlock()

		tracing.SetError(span, fault)
		w.logger.ErrorContext(j.ctx, "engine fault", "error", err, "duration_ms", time.Since(start).Milliseconds())
		j.reply <- jobResult{err: fault}
		return false
	}

	j.reply <- jobResult{
		img:    out,
		format: transcode.ResolveOutput(w.settings.ReturnFormat, j.source),
	}
	return true
}

// safeProcess converts an engine panic into an error.
func (w *Worker) safeProcess(ctx context.Context, img image.Image) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()

	out, err = w.engine.Process(ctx, img)
	if err == nil && out == nil {
		err = errors.New("engine returned no image")
	}
	return out, err
}

func (w *Worker) stoppedErr() error {
	if err := w.Err(); err != nil {
		return err
	}
	return ErrWorkerClosed
}
