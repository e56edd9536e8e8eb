//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vibewedding", "config.json")

	b := newFileBackend(path)
	if err := setKeyWith(b, "server.port", "9001"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if err := setKeyWith(b, "llm.model", "openai/gpt-4o-mini"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}

	reloaded := newFileBackend(path)
	port, ok, err := reloaded.Lookup("server.port")
	if err != nil || !ok || port != "9001" {
		t.Errorf("Lookup(server.port) = %q, %v, %v", port, ok, err)
	}
	model, ok, _ := reloaded.Lookup("llm.model")
	if !ok || model != "openai/gpt-4o-mini" {
		t.Errorf("Lookup(llm.model) = %q, %v", model, ok)
	}

	if err := unsetKeyWith(reloaded, "llm.model"); err != nil {
		t.Fatalf("unsetKeyWith: %v", err)
	}
	if _, ok, _ := newFileBackend(path).Lookup("llm.model"); ok {
		t.Error("expected key to be removed")
	}
	if err := reloaded.Remove("llm.model"); err != nil {
		t.Errorf("Remove of absent key: %v", err)
	}
}

func TestFileBackendHandEditedValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"server.port": 9200, "llm.temperature": 0.2, "llm.model": "x/y"}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadWith(newFileBackend(path), &mockKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 9200 || cfg.LLM.Temperature != 0.2 || cfg.LLM.Model != "x/y" {
		t.Errorf("cfg = %+v %+v", cfg.Server, cfg.LLM)
	}
}

func TestFileBackendInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	b := newFileBackend(path)
	if _, ok, _ := b.Lookup("server.port"); ok {
		t.Error("expected empty backend for unreadable file")
	}
	if err := b.Store("log.level", "debug"); err != nil {
		t.Fatalf("Store after bad file: %v", err)
	}
}

func TestFileKeychain(t *testing.T) {
	kc := platformKeychain{path: filepath.Join(t.TempDir(), "secrets.json")}

	if _, err := kc.Get(service, "llm_api_key"); err == nil {
		t.Fatal("expected error before any secret is stored")
	}

	tok, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if err := kc.Set(service, "llm_api_key", "sk-test"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := kc.Get(service, apiTokenAccount)
	if err != nil || got != tok {
		t.Errorf("token = %q, %v; want %q", got, err, tok)
	}
	info, err := os.Stat(kc.path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("secrets file mode = %v, want 0600", info.Mode().Perm())
	}
}
