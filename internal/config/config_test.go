package config

import (
	"fmt"
	"testing"
	"time"
)

// mapBackend is an in-memory ConfigBackend for tests.
type mapBackend struct {
	data map[string]any
}

func (m *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (m *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	i, ok := v.(int)
	if !ok {
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
	return i, true, nil
}

func (m *mapBackend) SetString(key, val string) error { m.data[key] = val; return nil }
func (m *mapBackend) SetInt(key string, val int) error { m.data[key] = val; return nil }
func (m *mapBackend) Delete(key string) error          { delete(m.data, key); return nil }

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(&mapBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.MCPPort != 8081 {
		t.Errorf("Server.MCPPort = %d, want 8081", cfg.Server.MCPPort)
	}
	if cfg.Server.MaxConns != 256 {
		t.Errorf("Server.MaxConns = %d, want 256", cfg.Server.MaxConns)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Errorf("Session.TTL = %v, want 30m", cfg.Session.TTL)
	}
	if cfg.Session.SweepInterval != time.Minute {
		t.Errorf("Session.SweepInterval = %v, want 1m", cfg.Session.SweepInterval)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("LLM.APIKey = %q, want empty by default", cfg.LLM.APIKey)
	}
}

func TestBackendValues(t *testing.T) {
	b := &mapBackend{data: map[string]any{
		"server.port":      9090,
		"storage.data_dir": "/tmp/grievd-test",
		"session.ttl":      "2h",
		"log.level":        "debug",
		"taxonomy.path":    "/etc/grievd/taxonomy.json",
	}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/grievd-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Session.TTL != 2*time.Hour {
		t.Errorf("Session.TTL = %v, want 2h", cfg.Session.TTL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Taxonomy.Path != "/etc/grievd/taxonomy.json" {
		t.Errorf("Taxonomy.Path = %q", cfg.Taxonomy.Path)
	}
}

func TestBadDurationInBackend(t *testing.T) {
	b := &mapBackend{data: map[string]any{"session.ttl": "not-a-duration"}}

	if _, err := loadWith(b); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	t.Setenv("GRIEVD_SERVER_PORT", "7070")
	t.Setenv("GRIEVD_LLM_API_KEY", "env-key")
	t.Setenv("GRIEVD_SESSION_TTL", "45m")

	b := &mapBackend{data: map[string]any{"server.port": 9090}}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("LLM.APIKey = %q, want env-key", cfg.LLM.APIKey)
	}
	if cfg.Session.TTL != 45*time.Minute {
		t.Errorf("Session.TTL = %v, want 45m", cfg.Session.TTL)
	}
}

// TestSecretsNotReadFromBackend verifies the API key in the config file is
// ignored; secrets are environment-only.
func TestSecretsNotReadFromBackend(t *testing.T) {
	b := &mapBackend{data: map[string]any{"llm.api_key": "file-key"}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("LLM.APIKey = %q, want empty (file secrets ignored)", cfg.LLM.APIKey)
	}
}

func TestSetKeyRejectsSecrets(t *testing.T) {
	if err := SetKey("llm.api_key", "sk-123"); err == nil {
		t.Fatal("expected error setting a secret key")
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if k == "llm.api_key" || k == "api.admin_token" {
			t.Errorf("secret key %q listed as settable", k)
		}
	}
}
