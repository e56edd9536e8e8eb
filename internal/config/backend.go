package config

import (
	"os"
	"path/filepath"
)

const appName = "vibewedding"

// Backend persists raw config values by dotted key. Values are typed by the
// key table on read, so a backend only ever sees strings. macOS stores them
// in UserDefaults, other platforms in a JSON file under XDG_CONFIG_HOME.
type Backend interface {
	Lookup(key string) (raw string, ok bool, err error)
	Store(key, raw string) error
	Remove(key string) error
}

// appDir joins elems under the home directory and appends the app name.
// It returns "" when the home directory is unknown.
func appDir(elems ...string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{home}, elems...), appName)...)
}

func orLocalDataDir(dir string) string {
	if dir == "" {
		return appName + "-data"
	}
	return dir
}
