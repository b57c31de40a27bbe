package transcode

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/webp"
)

// JPEGQuality is used when an upscaled image is re-encoded as JPEG.
const JPEGQuality = 90

// DecodeImage decodes data as the given format.
func DecodeImage(data []byte, format Format) (image.Image, error) {
	r := bytes.NewReader(data)

	var (
		img image.Image
		err error
	)
	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	case FormatGIF:
		img, err = gif.Decode(r)
	default:
		return nil, &UnsupportedFormatError{ContentType: format.String()}
	}
	if err != nil {
		return nil, &DecodeError{Stage: StageDecode, Format: format.String(), Err: err}
	}
	return img, nil
}

// EncodeImage encodes img as the given format. WebP output is lossless.
func EncodeImage(img image.Image, format Format) ([]byte, error) {
	var (
		buf bytes.Buffer
		err error
	)
	switch format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatWebP:
		err = nativewebp.Encode(&buf, img, nil)
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	default:
		return nil, &UnsupportedFormatError{ContentType: format.String()}
	}
	if err != nil {
		return nil, &DecodeError{Stage: StageEncode, Format: format.String(), Err: err}
	}
	return buf.Bytes(), nil
}
