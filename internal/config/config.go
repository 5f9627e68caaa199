// Package config loads grievd's configuration from a JSON config file,
// a .env file, and GRIEVD_* environment variables, in that precedence
// order (environment wins).
package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Session  SessionConfig
	Log      LogConfig
	Taxonomy TaxonomyConfig
	API      APIConfig
}

type ServerConfig struct {
	Port     int
	MCPPort  int
	MaxConns int
}

type LLMConfig struct {
	// APIKey is optional: without one the engine degrades to canned
	// replies instead of calling the completion service.
	APIKey string
	Model  string
}

type StorageConfig struct {
	DataDir string
}

type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type LogConfig struct {
	Level string
}

type TaxonomyConfig struct {
	// Path points at a JSON file overriding the built-in department and
	// category lists. Empty means use the defaults.
	Path string
}

type APIConfig struct {
	// AdminToken guards the admin endpoints; when empty they are disabled.
	AdminToken string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     8080,
			MCPPort:  8081,
			MaxConns: 256,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Session: SessionConfig{
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a .env file (if present), the JSON config
// file at $XDG_CONFIG_HOME/grievd/config.json, and GRIEVD_* environment
// variables. Environment variables override file values; secrets (the LLM
// API key and the admin token) are environment-only.
func Load() (Config, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
