// Package config provides configuration management for configmap-watch.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Watching %s every %s\n", cfg.Provider.Root, cfg.Provider.PollInterval)
package config

import (
	"strings"
	"time"

	"github.com/0xmhha/configmap-watch/pkg/fingerprint"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Provider.Root must not be blank
// - Provider.PollInterval must be > 0
// - Provider.Algorithm must be a known fingerprint algorithm
// - Journal.DBPath must be set when the journal is enabled
// - Journal.Retention must be >= 0.
type Config struct {
	// Watched directory and polling
	Provider ProviderConfig `yaml:"provider"`

	// Layered settings files
	Settings SettingsConfig `yaml:"settings"`

	// Change journal
	Journal JournalConfig `yaml:"journal"`

	// Display settings
	Display DisplayConfig `yaml:"display"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// ProviderConfig contains file provider settings.
type ProviderConfig struct {
	// Directory to serve and watch, typically a mounted ConfigMap
	Root string `yaml:"root"`

	// How often each watched file is fingerprinted
	PollInterval time.Duration `yaml:"poll_interval"`

	// Fingerprint algorithm (sha256, md5, xxhash64)
	Algorithm string `yaml:"algorithm"`

	// Files to watch, relative to Root. Empty watches every file in Root.
	Files []string `yaml:"files"`
}

// SettingsConfig contains settings pipeline options.
type SettingsConfig struct {
	// Environment name selecting the optional override file
	Environment string `yaml:"environment"`

	// Base name of the settings files
	BaseName string `yaml:"base_name"`
}

// JournalConfig contains change journal settings.
type JournalConfig struct {
	// Record detected changes
	Enabled bool `yaml:"enabled"`

	// Path to BoltDB database file
	DBPath string `yaml:"db_path"`

	// How long to keep journaled changes; 0 keeps everything
	Retention time.Duration `yaml:"retention"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Default output format (table, json, simple). Empty picks table on a
	// terminal and simple otherwise.
	DefaultFormat string `yaml:"default_format"`

	// Print full fingerprints instead of short ones
	FullFingerprints bool `yaml:"full_fingerprints"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Provider.Root) == "" {
		return ErrEmptyRoot
	}
	if c.Provider.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if _, err := fingerprint.ParseAlgorithm(c.Provider.Algorithm); err != nil {
		return ErrInvalidAlgorithm
	}
	for _, f := range c.Provider.Files {
		if strings.TrimSpace(f) == "" {
			return ErrEmptyFileName
		}
	}

	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return ErrEmptyDBPath
	}
	if c.Journal.Retention < 0 {
		return ErrInvalidRetention
	}

	validFormats := map[string]bool{
		"":       true,
		"table":  true,
		"json":   true,
		"simple": true,
	}
	if !validFormats[c.Display.DefaultFormat] {
		return ErrInvalidDisplayFormat
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Root:         "./config",
			PollInterval: 30 * time.Second,
			Algorithm:    string(fingerprint.Default),
			Files:        []string{"appsettings.json"},
		},
		Settings: SettingsConfig{
			BaseName: "appsettings",
		},
		Journal: JournalConfig{
			Enabled:   true,
			DBPath:    defaultDBPath(),
			Retention: 720 * time.Hour, // 30 days
		},
		Display: DisplayConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
