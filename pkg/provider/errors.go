package provider

import "errors"

// Common errors returned by the provider.
var (
	// ErrInvalidRoot is returned when the root path is empty or blank.
	ErrInvalidRoot = errors.New("invalid root path")

	// ErrRootNotFound is returned by FromRelativePath when the resolved
	// directory does not exist.
	ErrRootNotFound = errors.New("root directory not found")

	// ErrNotFound is returned by FileInfo.Open for files that do not exist.
	ErrNotFound = errors.New("file not found")

	// ErrOutsideRoot is returned when a watch filter resolves outside the root.
	ErrOutsideRoot = errors.New("path outside root")
)
