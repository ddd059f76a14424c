package journal

import "errors"

// Common errors returned by the journal.
var (
	// ErrNotFound is returned when a key has no recorded change.
	ErrNotFound = errors.New("no change recorded")

	// ErrEmptyKey is returned when recording a change without a key.
	ErrEmptyKey = errors.New("change key is empty")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("journal closed")
)
