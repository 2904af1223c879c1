// Package errs defines the error taxonomy shared by every engine component.
//
// Configuration, resource-not-found, device and degenerate-state errors are fatal:
// they mean a compile step was skipped, a buffer was mis-sized or the backend failed,
// and continuing would produce statistically invalid output. An empty reservoir is
// reported but is not fatal.
package errs

import "errors"

var (
	// ErrConfiguration covers parameter-count mismatches, thread-group limits and mis-sized external buffers.
	ErrConfiguration = errors.New("configuration error")

	// ErrResourceNotFound is returned when a pipeline or kernel function cannot be found.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrEmptyState is returned when a fill is requested against a zero-length reservoir.
	ErrEmptyState = errors.New("empty state")

	// ErrDevice wraps failures of the compute backend (allocation, compilation, submission).
	ErrDevice = errors.New("device error")

	// ErrDegenerateState is returned when a generator state is all zero.
	ErrDegenerateState = errors.New("degenerate generator state")
)

// IsFatal reports whether err must terminate the session.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyState) {
		return false
	}
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrDevice) ||
		errors.Is(err, ErrDegenerateState)
}
