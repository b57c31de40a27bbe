// Package types defines the JSON error envelope kurp writes for failures it
// originates: transport errors talking to the upstream server, transcode
// failures, an unavailable upscaler and rejected configuration updates.
//
//	{"error": {"message": "upscaler is not initialized", "type": "bad_gateway", "code": "worker_unavailable"}}
//
// The error type determines the HTTP status via ErrorDetail.HTTPStatusCode.
package types
