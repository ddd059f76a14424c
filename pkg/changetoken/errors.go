package changetoken

import "errors"

// Common errors returned by change tokens.
var (
	// ErrDisposed is returned when registering a callback on a disposed monitor.
	ErrDisposed = errors.New("change monitor is disposed")
)
