package watch

import "errors"

// Common errors returned by the watch registry.
var (
	// ErrClosed is returned when watching through a closed registry.
	ErrClosed = errors.New("watch registry is closed")

	// ErrEmptyKey is returned when the watch key is empty.
	ErrEmptyKey = errors.New("watch key cannot be empty")
)
