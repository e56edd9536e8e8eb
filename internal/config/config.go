package config

import (
	"errors"
	"strings"
	"time"
)

// ErrMissingLLMKey is returned by RequireLLMKey when no gateway key is configured.
var ErrMissingLLMKey = errors.New("missing required config: LLM gateway API key")

// service is the keychain service name for all vibewedding secrets.
const service = "vibewedding"

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	LLM     LLMConfig
	Log     LogConfig
	Chat    ChatConfig
	Vendors VendorsConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	Driver      string
	DataDir     string
	PostgresDSN string
}

type LLMConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	APIKey      string
}

type LogConfig struct {
	Level string
}

// ChatConfig controls the interactive planning session.
type ChatConfig struct {
	AnonymousTurnLimit int
	RequestTimeout     time.Duration
	UserID             string
}

type VendorsConfig struct {
	LookupLimit int
	CacheTTL    time.Duration
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8787,
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			DataDir: defaultDataDir(),
		},
		LLM: LLMConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "google/gemini-2.5-flash",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
			MaxRetries:  2,
		},
		Log: LogConfig{
			Level: "info",
		},
		Chat: ChatConfig{
			AnonymousTurnLimit: 1,
			RequestTimeout:     90 * time.Second,
		},
		Vendors: VendorsConfig{
			LookupLimit: 6,
			CacheTTL:    60 * time.Second,
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.vibewedding.app) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/vibewedding/config.json
// and secrets come from environment variables or the secrets file under
// $XDG_DATA_HOME/vibewedding.
//
// Environment variables (VIBE_*) override backend values on all platforms.
// Load never fails on a missing LLM key; commands that call the gateway use
// RequireLLMKey.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), NewKeychain())
}

// keychain abstracts secret lookup for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b Backend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	for _, s := range specs {
		if !s.secret || s.account == "" {
			continue
		}
		if cur, _ := s.extract(cfg).(string); cur != "" {
			continue
		}
		if v, err := kc.Get(service, s.account); err == nil && strings.TrimSpace(v) != "" {
			s.apply(&cfg, strings.TrimSpace(v))
		}
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	return cfg, nil
}

// RequireLLMKey reports a descriptive error when no gateway key is set.
func RequireLLMKey(cfg Config) error {
	if cfg.LLM.APIKey != "" {
		return nil
	}
	return errors.New(ErrMissingLLMKey.Error() + ". Set it via environment variable VIBE_LLM_API_KEY" + apiKeyHint())
}
