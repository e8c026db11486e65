// Package config holds resolution and validation helpers shared by the
// command-line entry points.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultRefreshDebounceMS = 500

// ExpandPath resolves a user-supplied path to an absolute one, expanding a
// leading "~" to the home directory.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("empty path")
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return filepath.Abs(path)
}

// EnsureParentDir creates the parent directory of the given file path when it
// does not yet exist.
func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// ValidateListenAddr ensures the configured listen address is restricted to
// localhost. The API serves unauthenticated settings including the stored
// API key, so it must never bind to a public interface.
func ValidateListenAddr(addr string) error {
	addr = strings.TrimSpace(strings.ToLower(addr))
	if strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:") || strings.HasPrefix(addr, "[::1]:") {
		return nil
	}
	return errors.New("listen address must bind to localhost for security")
}

// RefreshDebounce converts a millisecond count into the duration to wait
// before reloading the index after file-system change events. Non-positive
// values fall back to the default.
func RefreshDebounce(ms int) time.Duration {
	if ms <= 0 {
		ms = defaultRefreshDebounceMS
	}
	return time.Duration(ms) * time.Millisecond
}
