package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"kurp-hq/kurp/pkg/proxy/types"
)

const (
	// MaxRequestBodySize bounds the JSON bodies kurp reads itself (1MB).
	// Bodies that are only forwarded are streamed and not limited.
	MaxRequestBodySize = 1 << 20

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// ExtractRequestID extracts the request ID from the X-Request-ID header.
// If the header is not present, it returns an empty string.
//
// This allows clients to provide their own request IDs for correlation.
// If not provided, the middleware will generate one.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

// ReadBody reads a request body of at most MaxRequestBodySize bytes.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, MaxRequestBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &RequestError{
				Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
				Code:    types.CodeInvalidJSON,
			}
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

// DecodeJSON unmarshals data into v, reporting malformed input as a
// *RequestError.
func DecodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
		}
	}
	return nil
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string

	// Type overrides the error type; empty means invalid_request_error.
	Type string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	if e.Type != "" {
		return types.NewErrorResponse(e.Message, e.Type, e.Code)
	}
	return types.NewInvalidRequestError(e.Message, e.Code)
}
