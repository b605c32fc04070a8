package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.Provider != "anthropic" {
		t.Errorf("provider = %q", cfg.Model.Provider)
	}
	if cfg.Checkpoint.Driver != "sqlite" || cfg.Checkpoint.DSN == "" {
		t.Errorf("checkpoint = %+v", cfg.Checkpoint)
	}
	if cfg.MaxConcurrent != 4 {
		t.Errorf("max_concurrent = %d", cfg.MaxConcurrent)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docreel.yaml")
	content := `
data_dir: /var/docreel
mock_production: true
recursion_limit: 20
model:
  provider: openai
  name: gpt-4o
speech:
  language: es
  voice_description: warm spanish narrator
checkpoint:
  driver: redis
  dsn: localhost:6379
  ttl: 1h
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "/var/docreel" || !cfg.MockProduction || cfg.RecursionLimit != 20 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Model.Provider != "openai" || cfg.Model.Name != "gpt-4o" {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Checkpoint.Driver != "redis" || cfg.Checkpoint.TTL.Hours() != 1 {
		t.Errorf("checkpoint = %+v", cfg.Checkpoint)
	}
	// unset fields keep their defaults
	if cfg.Listen != ":8080" {
		t.Errorf("listen = %q", cfg.Listen)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("DOCREEL_MODEL_PROVIDER", "google")
	t.Setenv("DOCREEL_MOCK_PRODUCTION", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.AnthropicAPIKey != "sk-ant-test" {
		t.Errorf("api key = %q", cfg.Model.AnthropicAPIKey)
	}
	if cfg.Model.Provider != "google" {
		t.Errorf("provider = %q", cfg.Model.Provider)
	}
	if !cfg.MockProduction {
		t.Error("mock_production override lost")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"bad provider", func(c *Config) { c.Model.Provider = "llama" }, false},
		{"bad driver", func(c *Config) { c.Checkpoint.Driver = "postgres" }, false},
		{"driver without dsn", func(c *Config) { c.Checkpoint.Driver = "mysql"; c.Checkpoint.DSN = "" }, false},
		{"memory without dsn", func(c *Config) { c.Checkpoint.Driver = "memory"; c.Checkpoint.DSN = "" }, true},
		{"negative concurrency", func(c *Config) { c.MaxConcurrent = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
