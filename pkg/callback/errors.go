package callback

import "errors"

// Common errors returned by the callback registry.
var (
	// ErrClosed is returned when registering on a closed registry.
	ErrClosed = errors.New("callback registry is closed")

	// ErrNilCallback is returned when registering a nil callback.
	ErrNilCallback = errors.New("nil callback")
)
