package transcode

import (
	"mime"
	"strings"

	"kurp-hq/kurp/pkg/config"
)

// Format identifies an image encoding handled by the pipeline.
type Format int

// Supported image formats.
const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatWebP
	FormatGIF
)

var formatMIME = map[Format]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatWebP: "image/webp",
	FormatGIF:  "image/gif",
}

var formatExt = map[Format]string{
	FormatJPEG: "jpg",
	FormatPNG:  "png",
	FormatWebP: "webp",
	FormatGIF:  "gif",
}

// MIME returns the canonical media type of the format.
func (f Format) MIME() string {
	return formatMIME[f]
}

// Extension returns the file extension, without the dot, used when
// rewriting download file names.
func (f Format) Extension() string {
	return formatExt[f]
}

// String implements fmt.Stringer.
func (f Format) String() string {
	if ext, ok := formatExt[f]; ok {
		return ext
	}
	return "unknown"
}

// NormalizeMIME lowercases a Content-Type, drops its parameters and maps
// aliases such as image/jpg onto their canonical name.
func NormalizeMIME(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	switch mediaType {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-png":
		return "image/png"
	}
	return mediaType
}

// ParseFormat maps a Content-Type onto a Format.
func ParseFormat(contentType string) (Format, error) {
	mediaType := NormalizeMIME(contentType)
	for format, m := range formatMIME {
		if m == mediaType {
			return format, nil
		}
	}
	return FormatUnknown, &UnsupportedFormatError{ContentType: contentType}
}

// IsSupported reports whether the pipeline can decode the given Content-Type.
func IsSupported(contentType string) bool {
	_, err := ParseFormat(contentType)
	return err == nil
}

// ResolveOutput picks the encoding of an upscaled image. The configured
// return format wins; "original" keeps the source format.
func ResolveOutput(returnFormat string, source Format) Format {
	switch returnFormat {
	case config.FormatPNG:
		return FormatPNG
	case config.FormatJPEG:
		return FormatJPEG
	case config.FormatWebP:
		return FormatWebP
	default:
		return source
	}
}
