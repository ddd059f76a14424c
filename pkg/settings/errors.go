package settings

import "errors"

// Common errors returned by the settings pipeline.
var (
	// ErrNoSources is returned by Load when no sources are given.
	ErrNoSources = errors.New("no settings sources")

	// ErrSourceNotFound is returned when a required source file is missing.
	ErrSourceNotFound = errors.New("settings source not found")

	// ErrInvalidSource is returned when a source cannot be parsed.
	ErrInvalidSource = errors.New("invalid settings source")

	// ErrKeyNotFound is returned by Bind for an unknown section.
	ErrKeyNotFound = errors.New("settings key not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("settings closed")
)
