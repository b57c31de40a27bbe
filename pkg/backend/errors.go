package backend

import (
	"fmt"
)

// HTTPError reports a failed metadata call: a transport failure (Status 0),
// a non-2xx status or a body that could not be decoded.
type HTTPError struct {
	// Backend is the backend flavor that was queried
	Backend string

	// Status is the HTTP status code (0 if no response was received)
	Status int

	// URL is the requested URL
	URL string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	switch {
	case e.Status > 0 && e.Cause != nil:
		return fmt.Sprintf("%s request %s failed (status %d): %v", e.Backend, e.URL, e.Status, e.Cause)
	case e.Status > 0:
		return fmt.Sprintf("%s request %s failed with status %d", e.Backend, e.URL, e.Status)
	default:
		return fmt.Sprintf("%s request %s failed: %v", e.Backend, e.URL, e.Cause)
	}
}

// Unwrap returns the underlying error for error chain support.
func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// AuthError reports that a metadata call could not be authenticated, either
// because the reader's request carried no usable credential or because the
// backend rejected it (HTTP 401 or 403).
type AuthError struct {
	// Backend is the backend flavor
	Backend string

	// Message describes the failure
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Backend, e.Message)
}
