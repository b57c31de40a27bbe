package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"

	"kurp-hq/kurp/pkg/backend"
	"kurp-hq/kurp/pkg/proxy/types"
	"kurp-hq/kurp/pkg/transcode"
	"kurp-hq/kurp/pkg/upscaler"
)

// ProxyError reports that the upstream server could not be reached or did
// not answer.
type ProxyError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *ProxyError) Error() string {
	return fmt.Sprintf("upstream %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProxyError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the upstream did not answer in time.
func (e *ProxyError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// HandleError converts an error raised while serving a request into the JSON
// error body returned to the client. Everything that went wrong between kurp
// and the upstream or the engine is a Bad Gateway; only malformed requests
// are the client's fault.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var proxyErr *ProxyError
	if errors.As(err, &proxyErr) {
		if proxyErr.Timeout() {
			return types.NewBadGatewayError("upstream server did not respond in time", types.CodeUpstreamTimeout)
		}
		return types.NewBadGatewayError("upstream server is unreachable", types.CodeUpstreamError)
	}

	if upscaler.IsUnavailable(err) {
		return types.NewBadGatewayError(err.Error(), types.CodeWorkerUnavailable)
	}

	var (
		decodeErr   *transcode.DecodeError
		encodingErr *transcode.UnsupportedEncodingError
		formatErr   *transcode.UnsupportedFormatError
	)
	if errors.As(err, &decodeErr) || errors.As(err, &encodingErr) || errors.As(err, &formatErr) {
		return types.NewBadGatewayError(err.Error(), types.CodeTranscodeFailed)
	}

	var authErr *backend.AuthError
	if errors.As(err, &authErr) {
		return types.NewBadGatewayError(authErr.Error(), types.CodeMissingCredential)
	}

	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		return types.NewBadGatewayError(httpErr.Error(), types.CodeUpstreamError)
	}

	// Engine calls that ran past their job deadline.
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewBadGatewayError("upscale timed out", types.CodeWorkerUnavailable)
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}

// StatusFor returns the HTTP status HandleError assigns to err.
func StatusFor(err error) int {
	return HandleError(err).Error.HTTPStatusCode()
}
