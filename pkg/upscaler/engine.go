package upscaler

import (
	"context"
	"fmt"
	"image"
	"time"

	"kurp-hq/kurp/pkg/config"
)

// Engine is a super-resolution backend. Implementations are not required to
// be safe for concurrent use; the Worker serializes every call.
type Engine interface {
	// Name identifies the engine in logs, metrics and traces.
	Name() string

	// Scale is the factor by which Process enlarges an image.
	Scale() int

	// Process returns the upscaled image. Any error is treated as an engine
	// fault and causes the Worker to be replaced.
	Process(ctx context.Context, img image.Image) (image.Image, error)

	// Close releases the engine's resources.
	Close() error
}

// Factory constructs an engine for the given settings.
type Factory func(Settings) (Engine, error)

// Settings is the immutable upscaling configuration handed to a Worker.
// Changing any of it requires a new Worker.
type Settings struct {
	Upscaler     string
	ReturnFormat string
	Waifu2x      config.Waifu2xConfig
	RealCugan    config.RealCuganConfig
	Resample     config.ResampleConfig

	// JobTimeout bounds a single engine call.
	JobTimeout time.Duration

	// QueueSize is the number of jobs that may wait for the engine.
	QueueSize int
}

// SettingsFromConfig extracts the upscaling settings from the configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Upscaler:     cfg.Upscaler,
		ReturnFormat: cfg.ReturnFormat,
		Waifu2x:      cfg.Waifu2x,
		RealCugan:    cfg.RealCugan,
		Resample:     cfg.Resample,
		JobTimeout:   cfg.Engine.JobTimeout,
		QueueSize:    cfg.Engine.QueueSize,
	}
}

// NewEngine is the default Factory. It selects the engine named by
// Settings.Upscaler.
func NewEngine(s Settings) (Engine, error) {
	switch s.Upscaler {
	case config.UpscalerWaifu2x:
		return NewWaifu2x(s.Waifu2x)
	case config.UpscalerRealCugan:
		return NewRealCugan(s.RealCugan)
	case config.UpscalerResample:
		return NewResample(s.Resample)
	default:
		return nil, fmt.Errorf("unknown upscaler %q", s.Upscaler)
	}
}
