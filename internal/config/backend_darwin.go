//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

func defaultDataDir() string {
	return orLocalDataDir(appDir("Library", "Application Support"))
}

func apiKeyHint() string {
	return " or macOS Keychain (service: " + service + ", account: llm_api_key)"
}

// defaultsBackend keeps values in the com.vibewedding.app defaults domain.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() Backend {
	return defaultsBackend{domain: "com." + appName + ".app"}
}

func (b defaultsBackend) defaults(verb, key string, extra ...string) (string, error) {
	args := append([]string{verb, b.domain, key}, extra...)
	out, err := exec.Command("defaults", args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// absent reports the exit status defaults uses for a missing key.
func absent(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}

func (b defaultsBackend) Lookup(key string) (string, bool, error) {
	out, err := b.defaults("read", key)
	switch {
	case err == nil:
		return out, true, nil
	case absent(err):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("defaults read %s: %w (%s)", key, err, out)
	}
}

func (b defaultsBackend) Store(key, raw string) error {
	if out, err := b.defaults("write", key, "-string", raw); err != nil {
		return fmt.Errorf("defaults write %s: %w (%s)", key, err, out)
	}
	return nil
}

func (b defaultsBackend) Remove(key string) error {
	if out, err := b.defaults("delete", key); err != nil && !absent(err) {
		return fmt.Errorf("defaults delete %s: %w (%s)", key, err, out)
	}
	return nil
}
