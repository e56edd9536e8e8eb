package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const apiTokenAccount = "api_token"

// Keychain reads and writes secrets in the platform secret store.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// NewKeychain returns the platform secret store.
func NewKeychain() Keychain {
	return platformKeychain{}
}

// GetAPIToken returns the bearer token guarding the management API,
// generating and storing a new one on first use.
func GetAPIToken(kc Keychain) (string, error) {
	if tok, err := kc.Get(service, apiTokenAccount); err == nil && tok != "" {
		return tok, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	tok := hex.EncodeToString(buf)
	if err := kc.Set(service, apiTokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
