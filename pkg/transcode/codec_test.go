package transcode

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	return img
}

func TestEncodeDecodeImage(t *testing.T) {
	src := testImage(16, 12)

	for _, format := range []Format{FormatJPEG, FormatPNG, FormatWebP, FormatGIF} {
		t.Run(format.String(), func(t *testing.T) {
			data, err := EncodeImage(src, format)
			if err != nil {
				t.Fatalf("EncodeImage() error = %v", err)
			}

			img, err := DecodeImage(data, format)
			if err != nil {
				t.Fatalf("DecodeImage() error = %v", err)
			}
			if got := img.Bounds(); got.Dx() != 16 || got.Dy() != 12 {
				t.Errorf("bounds = %v, want 16x12", got)
			}
		})
	}
}

func TestDecodeImage_Malformed(t *testing.T) {
	_, err := DecodeImage([]byte("not a jpeg"), FormatJPEG)

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
	if decodeErr.Stage != StageDecode {
		t.Errorf("Stage = %q, want %q", decodeErr.Stage, StageDecode)
	}
}

func TestEncodeImage_Unknown(t *testing.T) {
	_, err := EncodeImage(testImage(1, 1), FormatUnknown)
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want *UnsupportedFormatError", err)
	}
}
