package transcode

import "fmt"

// Pipeline stages reported by DecodeError.
const (
	StageDecompress = "decompress"
	StageDecode     = "decode"
	StageUpscale    = "upscale"
	StageEncode     = "encode"
	StageCompress   = "compress"
)

// DecodeError reports a malformed payload or a failure at one stage of the
// pipeline. The original bytes are never substituted for a failed transcode.
type DecodeError struct {
	Stage  string
	Format string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("transcode %s (%s): %v", e.Stage, e.Format, e.Err)
	}
	return fmt.Sprintf("transcode %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnsupportedEncodingError is returned for a Content-Encoding the pipeline
// cannot decompress.
type UnsupportedEncodingError struct {
	Encoding string
}

// Error implements the error interface.
func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("unsupported content encoding %q", e.Encoding)
}

// UnsupportedFormatError is returned for a Content-Type that does not map to
// a known image format.
type UnsupportedFormatError struct {
	ContentType string
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported image content type %q", e.ContentType)
}
