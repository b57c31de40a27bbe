package transcode

import (
	"bytes"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Content-Encoding tokens understood by the pipeline.
const (
	EncodingIdentity = ""
	EncodingGzip     = "gzip"
	EncodingDeflate  = "deflate"
	EncodingBrotli   = "br"
)

// NormalizeEncoding lowercases a Content-Encoding value. "identity" is
// treated as no encoding.
func NormalizeEncoding(encoding string) string {
	encoding = strings.ToLower(strings.TrimSpace(encoding))
	if encoding == "identity" {
		return EncodingIdentity
	}
	return encoding
}

// Decompress returns the decoded payload. An empty encoding returns data
// unchanged. HTTP "deflate" is the zlib format, but servers that send a raw
// RFC 1951 stream under that name are accepted too.
func Decompress(encoding string, data []byte) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)

	switch NormalizeEncoding(encoding) {
	case EncodingIdentity:
		return data, nil
	case EncodingGzip:
		var gr *gzip.Reader
		gr, err = gzip.NewReader(bytes.NewReader(data))
		if err == nil {
			defer gr.Close()
			r = gr
		}
	case EncodingDeflate:
		if !hasZlibHeader(data) {
			fr := flate.NewReader(bytes.NewReader(data))
			defer fr.Close()
			r = fr
			break
		}
		var zr io.ReadCloser
		zr, err = zlib.NewReader(bytes.NewReader(data))
		if err == nil {
			defer zr.Close()
			r = zr
		}
	case EncodingBrotli:
		r = brotli.NewReader(bytes.NewReader(data))
	default:
		return nil, &UnsupportedEncodingError{Encoding: encoding}
	}
	if err != nil {
		return nil, &DecodeError{Stage: StageDecompress, Format: encoding, Err: err}
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Stage: StageDecompress, Format: encoding, Err: err}
	}
	return out, nil
}

// hasZlibHeader reports whether data starts with a zlib header: deflate
// compression method and a header checksum divisible by 31.
func hasZlibHeader(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	return cmf&0x0f == 8 && cmf>>4 <= 7 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// Compress encodes data with the given algorithm. An empty encoding returns
// data unchanged. "deflate" output is always zlib-wrapped.
func Compress(encoding string, data []byte) ([]byte, error) {
	var (
		buf bytes.Buffer
		w   io.WriteCloser
	)

	switch NormalizeEncoding(encoding) {
	case EncodingIdentity:
		return data, nil
	case EncodingGzip:
		w = gzip.NewWriter(&buf)
	case EncodingDeflate:
		w = zlib.NewWriter(&buf)
	case EncodingBrotli:
		w = brotli.NewWriter(&buf)
	default:
		return nil, &UnsupportedEncodingError{Encoding: encoding}
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, &DecodeError{Stage: StageCompress, Format: encoding, Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &DecodeError{Stage: StageCompress, Format: encoding, Err: err}
	}
	return buf.Bytes(), nil
}
