package upscaler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned while no engine is loaded.
	ErrNotInitialized = errors.New("upscaler is not initialized")

	// ErrWorkerClosed is returned for jobs submitted to a Worker that is
	// being replaced or shut down.
	ErrWorkerClosed = errors.New("upscaler worker is shutting down")
)

// WorkerFaultError reports that the engine failed while processing a job.
// The Worker that produced it has stopped; the Supervisor starts a new one
// for later jobs.
type WorkerFaultError struct {
	Engine string
	Err    error
}

// Error implements the error interface.
func (e *WorkerFaultError) Error() string {
	return fmt.Sprintf("upscaler %s faulted: %v", e.Engine, e.Err)
}

// Unwrap returns the underlying error.
func (e *WorkerFaultError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err means that no healthy worker could
// serve the job.
func IsUnavailable(err error) bool {
	var fault *WorkerFaultError
	return errors.Is(err, ErrNotInitialized) || errors.Is(err, ErrWorkerClosed) || errors.As(err, &fault)
}
