package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig       = "CONFIGMAP_WATCH_CONFIG"
	EnvRoot         = "CONFIGMAP_WATCH_ROOT"
	EnvPollInterval = "CONFIGMAP_WATCH_POLL_INTERVAL"
	EnvDBPath       = "CONFIGMAP_WATCH_DB"
	EnvLogLevel     = "CONFIGMAP_WATCH_LOG_LEVEL"
	EnvEnvironment  = "APP_ENVIRONMENT"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads a specific file over the default values.
	LoadFromFile(path string) (*Config, error)

	// Path returns the file Load reads, or "" when none is found.
	Path() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, CONFIGMAP_WATCH_CONFIG is used, then the first
// existing file of:
// 1. ./configmap-watch.yaml (current directory)
// 2. ~/.config/configmap-watch/config.yaml.
func NewLoader(configPath string) Loader {
	if configPath == "" {
		configPath = os.Getenv(EnvConfig)
	}
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	if configPath := l.Path(); configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// An explicitly named file must load; a discovered one is optional.
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = fileCfg
		}
	}

	if err := applyEnvVars(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile. Keys absent from the file
// keep their default values.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return cfg, nil
}

// Path implements Loader.Path.
func (l *loader) Path() string {
	if l.configPath != "" {
		return l.configPath
	}

	candidates := []string{
		"./configmap-watch.yaml",
		DefaultConfigPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - CONFIGMAP_WATCH_ROOT: provider root directory
//   - CONFIGMAP_WATCH_POLL_INTERVAL: poll interval (Go duration)
//   - CONFIGMAP_WATCH_DB: journal database path
//   - CONFIGMAP_WATCH_LOG_LEVEL: log level
//   - APP_ENVIRONMENT: settings environment name
func applyEnvVars(cfg *Config) error {
	if root := os.Getenv(EnvRoot); root != "" {
		cfg.Provider.Root = root
	}

	if raw := os.Getenv(EnvPollInterval); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidPollInterval, EnvPollInterval, raw)
		}
		cfg.Provider.PollInterval = interval
	}

	if dbPath := os.Getenv(EnvDBPath); dbPath != "" {
		cfg.Journal.DBPath = dbPath
	}

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		cfg.Logging.Level = strings.ToLower(logLevel)
	}

	if env := os.Getenv(EnvEnvironment); env != "" {
		cfg.Settings.Environment = env
	}

	return nil
}

// Load is a convenience function that creates a loader and loads configuration.
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
//
// Equivalent to:
//
//	loader := NewLoader(path)
//	return loader.Load()
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
