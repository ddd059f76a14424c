package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates a test from the caller's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvConfig, EnvRoot, EnvPollInterval, EnvDBPath, EnvLogLevel, EnvEnvironment} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "./config", cfg.Provider.Root)
	assert.Equal(t, 30*time.Second, cfg.Provider.PollInterval)
	assert.Equal(t, "sha256", cfg.Provider.Algorithm)
	assert.Equal(t, []string{"appsettings.json"}, cfg.Provider.Files)
	assert.Equal(t, "appsettings", cfg.Settings.BaseName)
	assert.True(t, cfg.Journal.Enabled)
	assert.NotEmpty(t, cfg.Journal.DBPath)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid default config", mutate: func(*Config) {}},
		{name: "blank root", mutate: func(c *Config) { c.Provider.Root = "  " }, wantErr: ErrEmptyRoot},
		{name: "zero poll interval", mutate: func(c *Config) { c.Provider.PollInterval = 0 }, wantErr: ErrInvalidPollInterval},
		{name: "unknown algorithm", mutate: func(c *Config) { c.Provider.Algorithm = "crc32" }, wantErr: ErrInvalidAlgorithm},
		{name: "xxhash alias", mutate: func(c *Config) { c.Provider.Algorithm = "xxhash" }},
		{name: "blank file name", mutate: func(c *Config) { c.Provider.Files = []string{"a.json", ""} }, wantErr: ErrEmptyFileName},
		{name: "no files", mutate: func(c *Config) { c.Provider.Files = nil }},
		{name: "journal without path", mutate: func(c *Config) { c.Journal.DBPath = "" }, wantErr: ErrEmptyDBPath},
		{name: "disabled journal without path", mutate: func(c *Config) {
			c.Journal.Enabled = false
			c.Journal.DBPath = ""
		}},
		{name: "negative retention", mutate: func(c *Config) { c.Journal.Retention = -time.Hour }, wantErr: ErrInvalidRetention},
		{name: "bad display format", mutate: func(c *Config) { c.Display.DefaultFormat = "xml" }, wantErr: ErrInvalidDisplayFormat},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: ErrInvalidLogLevel},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
provider:
  root: /etc/app
  poll_interval: 5s
  files:
    - appsettings.json
    - features.yaml
settings:
  environment: Production
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/etc/app", cfg.Provider.Root)
	assert.Equal(t, 5*time.Second, cfg.Provider.PollInterval)
	assert.Equal(t, []string{"appsettings.json", "features.yaml"}, cfg.Provider.Files)
	assert.Equal(t, "Production", cfg.Settings.Environment)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, "sha256", cfg.Provider.Algorithm)
	assert.Equal(t, "appsettings", cfg.Settings.BaseName)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFromFile_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := NewLoader("").LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	_, err = LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("provider: [unclosed"), 0600))
	_, err = LoadFromFile(bad)
	assert.ErrorIs(t, err, ErrInvalidYAML)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("provider:\n  poll_interval: -1s\n"), 0600))
	_, err = LoadFromFile(invalid)
	assert.ErrorIs(t, err, ErrInvalidPollInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  root: /from/file\n"), 0600))

	t.Setenv(EnvConfig, path)
	t.Setenv(EnvRoot, "/from/env")
	t.Setenv(EnvPollInterval, "250ms")
	t.Setenv(EnvDBPath, "/tmp/journal.db")
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvEnvironment, "Staging")

	loader := NewLoader("")
	assert.Equal(t, path, loader.Path())

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.Provider.Root)
	assert.Equal(t, 250*time.Millisecond, cfg.Provider.PollInterval)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.DBPath)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "Staging", cfg.Settings.Environment)
}

func TestLoad_InvalidEnvInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.ErrorIs(t, err, ErrConfigNotFound)

	t.Setenv(EnvConfig, "")
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvPollInterval, "soon")

	_, err = Load()
	assert.ErrorIs(t, err, ErrInvalidPollInterval)
}

func TestSave(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Provider.Root = "/srv/config"
	cfg.Provider.PollInterval = 10 * time.Second
	cfg.Journal.Retention = 0

	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_Invalid(t *testing.T) {
	cfg := Default()
	cfg.Provider.PollInterval = 0

	err := Save(cfg, filepath.Join(t.TempDir(), "config.yaml"))
	assert.ErrorIs(t, err, ErrInvalidPollInterval)
}
