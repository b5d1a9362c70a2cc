// Package appdir locates the per-user state directory (~/.axine-go) holding the
// log database and the keyring.
package appdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// EnvOverride names the environment variable that replaces the default location.
const EnvOverride = "AXINE_HOME"

var (
	mu       sync.Mutex
	dirCache string
)

// AppDir returns the state directory, creating it on first use.
func AppDir() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if dirCache != "" {
		return dirCache, nil
	}
	dir := os.Getenv(EnvOverride)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("appdir: %w", err)
		}
		dir = filepath.Join(home, ".axine-go")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("appdir: create %s: %w", dir, err)
	}
	dirCache = dir
	return dir, nil
}

// Path joins name onto the state directory. Absolute names are returned unchanged.
func Path(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
