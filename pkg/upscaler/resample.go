package upscaler

import (
	"context"
	"fmt"
	"image"

	"kurp-hq/kurp/pkg/config"

	"golang.org/x/image/draw"
)

// resampleEngine enlarges images in process with an interpolation kernel.
// It needs no GPU or external binary and is the fallback for hosts without
// Vulkan.
type resampleEngine struct {
	scale  int
	kernel draw.Interpolator
	name   string
}

var kernels = map[string]draw.Interpolator{
	"catmullrom":     draw.CatmullRom,
	"bilinear":       draw.BiLinear,
	"approxbilinear": draw.ApproxBiLinear,
	"nearest":        draw.NearestNeighbor,
}

// NewResample creates an in-process resampling engine.
func NewResample(cfg config.ResampleConfig) (Engine, error) {
	kernel, ok := kernels[cfg.Kernel]
	if !ok {
		return nil, fmt.Errorf("unknown resample kernel %q", cfg.Kernel)
	}
	if cfg.Scale < 1 {
		return nil, fmt.Errorf("resample scale must be at least 1, got %d", cfg.Scale)
	}
	return &resampleEngine{scale: cfg.Scale, kernel: kernel, name: config.UpscalerResample}, nil
}

func (e *resampleEngine) Name() string { return e.name }

func (e *resampleEngine) Scale() int { return e.scale }

func (e *resampleEngine) Process(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx()*e.scale, src.Dy()*e.scale))
	e.kernel.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst, nil
}

func (e *resampleEngine) Close() error { return nil }
