package fingerprint

import "errors"

// Common errors returned by the fingerprint package.
var (
	// ErrUnknownAlgorithm is returned when an algorithm name is not recognized.
	ErrUnknownAlgorithm = errors.New("unknown fingerprint algorithm: must be sha256, md5, or xxhash64")

	// ErrFileNotFound is returned by File when the target does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrNilReader is returned when Compute is given a nil reader.
	ErrNilReader = errors.New("nil reader")
)
