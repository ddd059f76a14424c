package config

import (
	"os"
	"path/filepath"
)

// appDir returns ~/.config/configmap-watch, or "." without a home directory.
func appDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(homeDir, ".config", "configmap-watch")
}

// defaultDBPath returns the default journal database path.
//
// Returns: ~/.config/configmap-watch/journal.db.
func defaultDBPath() string {
	return filepath.Join(appDir(), "journal.db")
}

// DefaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/configmap-watch/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(appDir(), "config.yaml")
}
