// Package config loads packflow settings from viper into the configuration
// structs of each component.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// Dir returns the packflow configuration directory.
func Dir() string {
	return ExpandPath("~/.config/packflow")
}

// DefaultHistoryPath is where the run history database lives unless
// history.path says otherwise.
func DefaultHistoryPath() string {
	return filepath.Join(Dir(), "history.db")
}
