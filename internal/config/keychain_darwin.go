//go:build darwin

package config

import (
	"fmt"
	"os/exec"
	"strings"
)

type platformKeychain struct{}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w").Output()
	if err != nil {
		return "", fmt.Errorf("keychain lookup %s/%s: %w", service, account, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	// -U updates an existing item instead of failing.
	if err := exec.Command("security", "add-generic-password", "-U", "-s", service, "-a", account, "-w", value).Run(); err != nil {
		return fmt.Errorf("keychain store %s/%s: %w", service, account, err)
	}
	return nil
}
