package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrEmptyRoot is returned when the provider root is blank.
	ErrEmptyRoot = errors.New("provider root is empty")

	// ErrInvalidPollInterval is returned when poll interval is <= 0.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be > 0")

	// ErrInvalidAlgorithm is returned when the fingerprint algorithm is unknown.
	ErrInvalidAlgorithm = errors.New("invalid algorithm: must be sha256, md5, or xxhash64")

	// ErrEmptyFileName is returned when a watched file name is blank.
	ErrEmptyFileName = errors.New("watched file name is empty")

	// ErrEmptyDBPath is returned when the journal is enabled without a path.
	ErrEmptyDBPath = errors.New("journal db path is empty")

	// ErrInvalidRetention is returned when journal retention is negative.
	ErrInvalidRetention = errors.New("invalid journal retention: must be >= 0")

	// ErrInvalidDisplayFormat is returned when display format is not recognized.
	ErrInvalidDisplayFormat = errors.New("invalid display format: must be table, json, or simple")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
