package transcode

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
)

// RewriteHeaders updates response headers so that they describe res instead
// of the upstream body: Content-Type, Content-Length and the file extension
// in Content-Disposition. Content-Encoding is left alone because the body is
// recompressed with the same algorithm. A result that was not upscaled is
// the upstream body, so h is left exactly as the upstream sent it.
func RewriteHeaders(h http.Header, res *Result) {
	if !res.Upscaled {
		return
	}

	h.Set("Content-Type", res.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))

	if cd := h.Get("Content-Disposition"); cd != "" {
		h.Set("Content-Disposition", RewriteDisposition(cd, res.Format))
	}
}

// RewriteDisposition replaces the extension of the filename and filename*
// parameters with the one matching format. Each parameter keeps its own
// quoting and encoding; every other part of the value is preserved.
// Unparseable values are returned unchanged.
func RewriteDisposition(disposition string, format Format) string {
	ext := format.Extension()
	if ext == "" {
		return disposition
	}
	if _, _, err := mime.ParseMediaType(disposition); err != nil {
		return disposition
	}

	parts := splitParams(disposition)
	for i, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "filename", "filename*":
			parts[i] = key + "=" + rewriteFilename(strings.TrimSpace(value), ext)
		}
	}
	return strings.Join(parts, ";")
}

// splitParams splits a header value on the semicolons outside quoted
// strings.
func splitParams(s string) []string {
	var (
		parts   []string
		start   int
		quoted  bool
		escaped bool
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case escaped:
			escaped = false
		case c == '\\' && quoted:
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == ';' && !quoted:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// rewriteFilename swaps the extension of a token, quoted string or RFC 5987
// ext-value. The extension is always the ASCII tail, so percent-encoded
// names need no decoding.
func rewriteFilename(value, ext string) string {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		return `"` + replaceExtension(value[1:len(value)-1], ext) + `"`
	}
	if charset, rest, ok := strings.Cut(value, "'"); ok {
		if lang, name, ok := strings.Cut(rest, "'"); ok {
			return charset + "'" + lang + "'" + replaceExtension(name, ext)
		}
	}
	return replaceExtension(value, ext)
}

func replaceExtension(name, ext string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	return base + "." + ext
}
