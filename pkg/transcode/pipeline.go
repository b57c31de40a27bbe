package transcode

import (
	"context"
	"image"
	"log/slog"
	"time"

	"kurp-hq/kurp/pkg/config"
	"kurp-hq/kurp/pkg/telemetry/metrics"
	"kurp-hq/kurp/pkg/telemetry/tracing"
)

// Upscaler runs the super-resolution step on a decoded image and decides
// which format the result should be encoded as.
type Upscaler interface {
	Upscale(ctx context.Context, img image.Image, source Format) (image.Image, Format, error)
}

// Options control when the pipeline skips upscaling.
type Options struct {
	// ThresholdEnabled turns the size threshold on.
	ThresholdEnabled bool

	// Threshold is the largest decompressed size, in KB, of a lossy image
	// that still gets upscaled.
	Threshold int

	// ThresholdPNG is the same limit for lossless PNG sources.
	ThresholdPNG int
}

// OptionsFromConfig extracts the pipeline options from the configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ThresholdEnabled: cfg.SizeThresholdEnabled,
		Threshold:        cfg.SizeThreshold,
		ThresholdPNG:     cfg.SizeThresholdPNG,
	}
}

// Result is the outcome of a transcode.
type Result struct {
	// Data is the response body, compressed with the input encoding.
	Data []byte

	// ContentType is the media type of Data.
	ContentType string

	// Format is the image format of Data.
	Format Format

	// Upscaled is false when the threshold short-circuited the pipeline and
	// Data is the original body.
	Upscaled bool
}

// Pipeline decompresses, decodes, upscales, encodes and recompresses an image
// response body. A Pipeline holds no per-request state and is safe for
// concurrent use.
type Pipeline struct {
	upscaler Upscaler
	opts     Options
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
}

// NewPipeline creates a pipeline. metrics and tracer may be nil.
func NewPipeline(upscaler Upscaler, opts Options, logger *slog.Logger, collector *metrics.Collector, tracer *tracing.Tracer) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		upscaler: upscaler,
		opts:     opts,
		logger:   logger,
		metrics:  collector,
		tracer:   tracer,
	}
}

// Transcode runs the pipeline on body. Every step is a hard failure: on error
// the caller must not fall back to the original bytes.
func (p *Pipeline) Transcode(ctx context.Context, body []byte, contentType, contentEncoding string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "transcode")
	defer span.End()

	start := time.Now()
	res, err := p.transcode(ctx, body, contentType, contentEncoding)
	if err != nil {
		tracing.SetError(span, err)
		p.metrics.RecordUpscale(metrics.ResultError, 0)
		return nil, err
	}

	if res.Upscaled {
		tracing.SetResult(span, metrics.ResultUpscaled)
		p.metrics.RecordUpscale(metrics.ResultUpscaled, time.Since(start))
	} else {
		tracing.SetResult(span, metrics.ResultSkipped)
		p.metrics.RecordUpscale(metrics.ResultSkipped, 0)
	}
	tracing.SetImageAttributes(span, res.ContentType, len(res.Data))
	return res, nil
}

func (p *Pipeline) transcode(ctx context.Context, body []byte, contentType, contentEncoding string) (*Result, error) {
	source, err := ParseFormat(contentType)
	if err != nil {
		return nil, err
	}
	encoding := NormalizeEncoding(contentEncoding)

	raw, err := Decompress(encoding, body)
	if err != nil {
		return nil, err
	}

	if p.exceedsThreshold(source, len(raw)) {
		p.logger.DebugContext(ctx, "image above size threshold, skipping upscale",
			"format", source.String(),
			"size_kb", len(raw)/1024,
		)
		return &Result{
			Data:        body,
			ContentType: source.MIME(),
			Format:      source,
		}, nil
	}

	img, err := DecodeImage(raw, source)
	if err != nil {
		return nil, err
	}

	upscaled, target, err := p.upscaler.Upscale(ctx, img, source)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodeImage(upscaled, target)
	if err != nil {
		return nil, err
	}

	out, err := Compress(encoding, encoded)
	if err != nil {
		return nil, err
	}

	bounds := upscaled.Bounds()
	p.logger.DebugContext(ctx, "image upscaled",
		"source_format", source.String(),
		"target_format", target.String(),
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"in_bytes", len(body),
		"out_bytes", len(out),
	)

	return &Result{
		Data:        out,
		ContentType: target.MIME(),
		Format:      target,
		Upscaled:    true,
	}, nil
}

// exceedsThreshold compares the decompressed size in whole KB against the
// per-format limit.
func (p *Pipeline) exceedsThreshold(format Format, size int) bool {
	if !p.opts.ThresholdEnabled {
		return false
	}
	limit := p.opts.Threshold
	if format == FormatPNG {
		limit = p.opts.ThresholdPNG
	}
	return size/1024 > limit
}
