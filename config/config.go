// Package config loads pipeline configuration from a YAML file with
// environment variable overrides for secrets and deploy-time settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	// DataDir holds run artifacts: audio, renders, the voice cache.
	DataDir string `yaml:"data_dir"`

	// Listen is the HTTP address for docreel serve.
	Listen string `yaml:"listen"`

	// LogJSON switches the event log from text to JSONL.
	LogJSON bool `yaml:"log_json"`

	// MockProduction swaps the production sub-graph for deterministic
	// stand-ins: no TTS or render credits burned during development.
	MockProduction bool `yaml:"mock_production"`

	// RecursionLimit bounds the research loops. Zero means the engine
	// default.
	RecursionLimit int `yaml:"recursion_limit"`

	// MaxConcurrent caps parallel node execution per run.
	MaxConcurrent int `yaml:"max_concurrent"`

	Model      ModelConfig      `yaml:"model"`
	Speech     SpeechConfig     `yaml:"speech"`
	Render     RenderConfig     `yaml:"render"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
}

// ModelConfig selects and authenticates the text-generation provider.
type ModelConfig struct {
	// Provider is one of anthropic, openai, google, mock.
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	GoogleAPIKey    string `yaml:"google_api_key"`
}

// SpeechConfig configures voice synthesis and voice design.
type SpeechConfig struct {
	APIKey string `yaml:"api_key"`

	// VoiceID pins a concrete voice; empty means design one from
	// VoiceDescription and cache it.
	VoiceID          string `yaml:"voice_id"`
	VoiceDescription string `yaml:"voice_description"`
	Language         string `yaml:"language"`
}

// RenderConfig points at the render service.
type RenderConfig struct {
	URL       string `yaml:"url"`
	AuthToken string `yaml:"auth_token"`
}

// CheckpointConfig selects the checkpoint store backend.
type CheckpointConfig struct {
	// Driver is one of memory, sqlite, mysql, redis.
	Driver string `yaml:"driver"`

	// DSN is the sqlite path, mysql DSN, or redis address.
	DSN string `yaml:"dsn"`

	// TTL expires redis checkpoints; ignored by other drivers.
	TTL time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DataDir:       "./data",
		Listen:        ":8080",
		MaxConcurrent: 4,
		Model:         ModelConfig{Provider: "anthropic"},
		Speech:        SpeechConfig{Language: "en"},
		Checkpoint:    CheckpointConfig{Driver: "sqlite", DSN: "./data/checkpoints.db"},
	}
}

// Load reads the YAML file at path (empty path means defaults only),
// applies environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables. API keys use the providers'
// conventional names; everything else is DOCREEL_-prefixed.
func (c *Config) applyEnv() {
	setIfEnv(&c.Model.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setIfEnv(&c.Model.OpenAIAPIKey, "OPENAI_API_KEY")
	setIfEnv(&c.Model.GoogleAPIKey, "GOOGLE_API_KEY")
	setIfEnv(&c.Speech.APIKey, "ELEVENLABS_API_KEY")

	setIfEnv(&c.DataDir, "DOCREEL_DATA_DIR")
	setIfEnv(&c.Listen, "DOCREEL_LISTEN")
	setIfEnv(&c.Model.Provider, "DOCREEL_MODEL_PROVIDER")
	setIfEnv(&c.Model.Name, "DOCREEL_MODEL_NAME")
	setIfEnv(&c.Checkpoint.Driver, "DOCREEL_CHECKPOINT_DRIVER")
	setIfEnv(&c.Checkpoint.DSN, "DOCREEL_CHECKPOINT_DSN")
	setIfEnv(&c.Render.URL, "DOCREEL_RENDER_URL")
	setIfEnv(&c.Render.AuthToken, "DOCREEL_RENDER_TOKEN")

	if v, ok := os.LookupEnv("DOCREEL_MOCK_PRODUCTION"); ok {
		c.MockProduction = v == "1" || v == "true"
	}
}

func setIfEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate checks enum fields and cross-field requirements.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "anthropic", "openai", "google", "mock":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}

	switch c.Checkpoint.Driver {
	case "memory", "sqlite", "mysql", "redis":
	default:
		return fmt.Errorf("unknown checkpoint driver %q", c.Checkpoint.Driver)
	}
	if c.Checkpoint.Driver != "memory" && c.Checkpoint.DSN == "" {
		return fmt.Errorf("checkpoint driver %q requires a dsn", c.Checkpoint.Driver)
	}

	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must be >= 0")
	}
	if c.RecursionLimit < 0 {
		return fmt.Errorf("recursion_limit must be >= 0")
	}
	return nil
}
