package upscaler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"kurp-hq/kurp/pkg/config"

	"github.com/google/uuid"
)

// ncnnEngine drives one of the *-ncnn-vulkan command line upscalers. Each
// job writes a PNG into a private work directory, runs the binary and reads
// the result back.
type ncnnEngine struct {
	name    string
	binary  string
	scale   int
	args    []string
	workDir string
}

// NewWaifu2x creates an engine backed by waifu2x-ncnn-vulkan.
func NewWaifu2x(cfg config.Waifu2xConfig) (Engine, error) {
	args := []string{
		"-n", strconv.Itoa(cfg.Noise),
		"-s", strconv.Itoa(cfg.Scale),
		"-t", strconv.Itoa(cfg.TileSize),
		"-m", filepath.Join(cfg.ModelsPath, "models-"+cfg.Model),
		"-g", strconv.Itoa(cfg.GPUID),
		"-j", fmt.Sprintf("1:%d:1", cfg.NumThreads),
		"-f", "png",
	}
	if cfg.TTAMode {
		args = append(args, "-x")
	}
	return newNCNN(config.UpscalerWaifu2x, cfg.Binary, cfg.Scale, args)
}

// NewRealCugan creates an engine backed by realcugan-ncnn-vulkan.
func NewRealCugan(cfg config.RealCuganConfig) (Engine, error) {
	args := []string{
		"-n", strconv.Itoa(cfg.Noise),
		"-s", strconv.Itoa(cfg.Scale),
		"-t", strconv.Itoa(cfg.TileSize),
		"-c", strconv.Itoa(cfg.SyncGap),
		"-m", filepath.Join(cfg.ModelsPath, "models-"+cfg.Model),
		"-g", strconv.Itoa(cfg.GPUID),
		"-j", fmt.Sprintf("1:%d:1", cfg.NumThreads),
		"-f", "png",
	}
	if cfg.TTAMode {
		args = append(args, "-x")
	}
	return newNCNN(config.UpscalerRealCugan, cfg.Binary, cfg.Scale, args)
}

func newNCNN(name, binary string, scale int, args []string) (Engine, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%s binary not found: %w", name, err)
	}

	workDir, err := os.MkdirTemp("", "kurp-"+name+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create %s work directory: %w", name, err)
	}

	return &ncnnEngine{
		name:    name,
		binary:  path,
		scale:   scale,
		args:    args,
		workDir: workDir,
	}, nil
}

func (e *ncnnEngine) Name() string { return e.name }

func (e *ncnnEngine) Scale() int { return e.scale }

func (e *ncnnEngine) Process(ctx context.Context, img image.Image) (image.Image, error) {
	id := uuid.NewString()
	in := filepath.Join(e.workDir, id+"-in.png")
	out := filepath.Join(e.workDir, id+"-out.png")
	defer os.Remove(in)
	defer os.Remove(out)

	if err := writePNG(in, img); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.binary, append([]string{"-i", in, "-o", out}, e.args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", e.name, err, lastLine(msg))
		}
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("%s produced no output: %w", e.name, err)
	}
	defer f.Close()

	result, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s produced an unreadable image: %w", e.name, err)
	}
	return result, nil
}

func (e *ncnnEngine) Close() error {
	return os.RemoveAll(e.workDir)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create engine input: %w", err)
	}

	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to write engine input: %w", err)
	}
	return f.Close()
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
