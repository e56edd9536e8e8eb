//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func secretsFilePath() string {
	dir := xdgDir("XDG_DATA_HOME", ".local", "share")
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "secrets.json")
}

// platformKeychain keeps secrets in a 0600 JSON file shaped
// {"service": {"account": "value"}}.
type platformKeychain struct {
	path string
}

func (k platformKeychain) file() string {
	if k.path != "" {
		return k.path
	}
	return secretsFilePath()
}

func (k platformKeychain) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(k.file())
	if err != nil {
		return nil, err
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func (k platformKeychain) Get(service, account string) (string, error) {
	secrets, err := k.read()
	if err != nil {
		return "", fmt.Errorf("keychain not available: %w", err)
	}
	val, ok := secrets[service][account]
	if !ok {
		return "", fmt.Errorf("account %q not found in service %q", account, service)
	}
	return val, nil
}

func (k platformKeychain) Set(service, account, value string) error {
	secrets, err := k.read()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value

	p := k.file()
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, out, 0o600)
}
