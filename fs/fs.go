// Package fs provides filesystem-backed implementations: source discovery,
// response caching and session report directories.
package fs

import (
	"os"
	"path/filepath"
)

const appName = "changescope"

// DefaultCacheDir returns the default cache directory for changescope.
// Uses XDG_CACHE_HOME if set, otherwise falls back to ~/.cache/changescope,
// or system temp directory if home is unavailable.
func DefaultCacheDir() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// DefaultStateDir returns the directory for logs and the history database.
// Uses XDG_STATE_HOME if set, otherwise ~/.local/state/changescope.
func DefaultStateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// DefaultConfigDir returns the directory searched for config.yaml.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/changescope.
func DefaultConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

func xdgDir(env, fallback string) string {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, fallback, appName)
}
