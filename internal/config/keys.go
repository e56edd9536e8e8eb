package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	account string // keychain account for secrets
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "VIBE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.driver", typ: kString, env: "VIBE_STORAGE_DRIVER",
		apply:   func(cfg *Config, v any) { cfg.Storage.Driver = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Driver },
	},
	{
		key: "storage.data_dir", typ: kString, env: "VIBE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.postgres_dsn", typ: kString, env: "VIBE_POSTGRES_DSN",
		secret: true, account: "postgres_dsn",
		apply:   func(cfg *Config, v any) { cfg.Storage.PostgresDSN = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.PostgresDSN },
	},
	{
		key: "llm.base_url", typ: kString, env: "VIBE_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.model", typ: kString, env: "VIBE_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.temperature", typ: kFloat, env: "VIBE_LLM_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.LLM.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.Temperature },
	},
	{
		key: "llm.timeout", typ: kDuration, env: "VIBE_LLM_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.LLM.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.LLM.Timeout },
	},
	{
		key: "llm.max_retries", typ: kInt, env: "VIBE_LLM_MAX_RETRIES",
		apply:   func(cfg *Config, v any) { cfg.LLM.MaxRetries = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.MaxRetries },
	},
	{
		key: "llm.api_key", typ: kString, env: "VIBE_LLM_API_KEY",
		secret: true, account: "llm_api_key",
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "log.level", typ: kString, env: "VIBE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "chat.anonymous_turn_limit", typ: kInt, env: "VIBE_CHAT_ANONYMOUS_TURN_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Chat.AnonymousTurnLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Chat.AnonymousTurnLimit },
	},
	{
		key: "chat.request_timeout", typ: kDuration, env: "VIBE_CHAT_REQUEST_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Chat.RequestTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Chat.RequestTimeout },
	},
	{
		key: "chat.user_id", typ: kString, env: "VIBE_CHAT_USER_ID",
		apply:   func(cfg *Config, v any) { cfg.Chat.UserID = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.UserID },
	},
	{
		key: "vendors.lookup_limit", typ: kInt, env: "VIBE_VENDORS_LOOKUP_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Vendors.LookupLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Vendors.LookupLimit },
	},
	{
		key: "vendors.cache_ttl", typ: kDuration, env: "VIBE_VENDORS_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Vendors.CacheTTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Vendors.CacheTTL },
	},
}

// parseValue converts raw text to the Go type of typ.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		d, err := time.ParseDuration(raw)
		if err == nil && d <= 0 {
			err = fmt.Errorf("duration must be positive")
		}
		return d, err
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.Lookup(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
