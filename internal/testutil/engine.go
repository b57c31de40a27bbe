package testutil

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
)

// ErrEngineFault is returned by a FakeEngine told to fail.
var ErrEngineFault = errors.New("fake engine fault")

// FakeEngine is an in-memory upscale engine. It enlarges images by Factor
// (nearest neighbour) and can be told to fail or block.
type FakeEngine struct {
	EngineName string
	Factor     int

	// FailNext makes the next n Process calls return ErrEngineFault.
	FailNext atomic.Int32

	// PanicNext makes the next n Process calls panic.
	PanicNext atomic.Int32

	// Gate, when set, blocks Process until a value is received or the
	// context ends.
	Gate chan struct{}

	calls  atomic.Int32
	closed atomic.Bool

	mu      sync.Mutex
	active  int
	maxSeen int
}

// NewFakeEngine returns a healthy engine with the given scale factor.
func NewFakeEngine(factor int) *FakeEngine {
	return &FakeEngine{EngineName: "fake", Factor: factor}
}

func (e *FakeEngine) Name() string { return e.EngineName }

func (e *FakeEngine) Scale() int { return e.Factor }

func (e *FakeEngine) Process(ctx context.Context, img image.Image) (image.Image, error) {
	e.calls.Add(1)

	e.mu.Lock()
	e.active++
	if e.active > e.maxSeen {
		e.maxSeen = e.active
	}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if e.Gate != nil {
		select {
		case <-e.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if e.PanicNext.Load() > 0 {
		e.PanicNext.Add(-1)
		panic("fake engine panic")
	}
	if e.FailNext.Load() > 0 {
		e.FailNext.Add(-1)
		return nil, ErrEngineFault
	}

	b := img.Bounds()
	f := e.Factor
	if f < 1 {
		f = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*f, b.Dy()*f))
	for y := 0; y < out.Bounds().Dy(); y++ {
		for x := 0; x < out.Bounds().Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x/f, b.Min.Y+y/f))
		}
	}
	return out, nil
}

func (e *FakeEngine) Close() error {
	e.closed.Store(true)
	return nil
}

// Calls returns the number of Process calls.
func (e *FakeEngine) Calls() int { return int(e.calls.Load()) }

// Closed reports whether Close was called.
func (e *FakeEngine) Closed() bool { return e.closed.Load() }

// MaxConcurrent returns the highest number of Process calls observed
// running at the same time.
func (e *FakeEngine) MaxConcurrent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxSeen
}
