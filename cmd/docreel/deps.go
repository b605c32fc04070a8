package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docreel/docreel-go/config"
	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/emit"
	"github.com/docreel/docreel-go/graph/model"
	"github.com/docreel/docreel-go/graph/model/anthropic"
	"github.com/docreel/docreel-go/graph/model/google"
	"github.com/docreel/docreel-go/graph/model/openai"
	"github.com/docreel/docreel-go/graph/store"
	"github.com/docreel/docreel-go/graph/tool"
	"github.com/docreel/docreel-go/pipeline"
	"github.com/docreel/docreel-go/render"
	"github.com/docreel/docreel-go/speech"
)

// defaultVoiceID is used when neither the config nor the voice cache
// names a voice.
const defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// mockReply is the canned model output for the "mock" provider: one
// JSON document that satisfies every structured request the pipeline
// makes, for offline development.
const mockReply = `{
	"summary": "A mock summary of the document.",
	"key_concepts": ["mock concept"],
	"toc": [{"title": "Mock", "page": 1}],
	"quiz_items": [],
	"persona": "developer",
	"skill_level": "any",
	"tone": "neutral",
	"visual_style": "plain",
	"pacing": "steady",
	"voice_tone": "calm",
	"hashtags": ["#mock"],
	"scenes": [{"scene_number": 1, "on_screen_action": "title card", "dialogue_vo": "This is a mock run", "on_screen_text": "MOCK"}],
	"asset_plan": [{"scene_name": "scene 1", "video_asset": ["placeholder"], "bgm": [], "sfx": []}]
}`

// buildDeps assembles the pipeline's dependencies from config. The
// returned cleanup releases store and client resources.
func buildDeps(ctx context.Context, cfg config.Config, emitter emit.Emitter, metrics *graph.PrometheusMetrics) (pipeline.Deps, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	client, closeModel, err := buildModel(ctx, cfg.Model)
	if err != nil {
		return pipeline.Deps{}, nil, err
	}
	if closeModel != nil {
		cleanups = append(cleanups, closeModel)
	}

	st, closeStore, err := buildStore(ctx, cfg.Checkpoint)
	if err != nil {
		cleanup()
		return pipeline.Deps{}, nil, err
	}
	if closeStore != nil {
		cleanups = append(cleanups, closeStore)
	}

	synth := speech.NewClient(cfg.Speech.APIKey)
	voiceID, err := resolveVoice(ctx, cfg, synth)
	if err != nil {
		cleanup()
		return pipeline.Deps{}, nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		cleanup()
		return pipeline.Deps{}, nil, fmt.Errorf("data dir: %w", err)
	}

	deps := pipeline.Deps{
		Model:          client,
		Synth:          synth,
		Render:         render.NewHTTPClient(cfg.Render.URL, render.WithAuthToken(cfg.Render.AuthToken)),
		Tools:          tool.NewRegistry(tool.NewHTTPTool()),
		Store:          st,
		Emitter:        emitter,
		Metrics:        metrics,
		DataDir:        cfg.DataDir,
		VoiceID:        voiceID,
		RecursionLimit: cfg.RecursionLimit,
		MaxConcurrent:  cfg.MaxConcurrent,
		MockProduction: cfg.MockProduction,
	}
	return deps, cleanup, nil
}

func buildModel(ctx context.Context, cfg config.ModelConfig) (model.Client, func(), error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, nil, fmt.Errorf("anthropic provider needs ANTHROPIC_API_KEY")
		}
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.Name), nil, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("openai provider needs OPENAI_API_KEY")
		}
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.Name), nil, nil
	case "google":
		if cfg.GoogleAPIKey == "" {
			return nil, nil, fmt.Errorf("google provider needs GOOGLE_API_KEY")
		}
		c, err := google.NewClient(ctx, cfg.GoogleAPIKey, cfg.Name)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	case "mock":
		return &model.MockClient{Responses: []model.ChatOut{{Text: mockReply}}}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func buildStore(ctx context.Context, cfg config.CheckpointConfig) (store.Store[graph.State], func(), error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemStore[graph.State](), nil, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return nil, nil, fmt.Errorf("checkpoint dir: %w", err)
		}
		st, err := store.NewSQLiteStore[graph.State](cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case "mysql":
		st, err := store.NewMySQLStore[graph.State](cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case "redis":
		st, err := store.NewRedisStore[graph.State](ctx, cfg.DSN, store.WithTTL[graph.State](cfg.TTL))
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown checkpoint driver %q", cfg.Driver)
	}
}

// resolveVoice picks the synthesis voice. An explicit ID wins. With a
// voice description configured, a cached voice designed from that
// description is reused; on a cache miss a new voice is designed and
// cached. Voice design is best effort: if it fails, the stock default
// voice keeps the run going.
func resolveVoice(ctx context.Context, cfg config.Config, designer speech.Designer) (string, error) {
	if cfg.Speech.VoiceID != "" {
		return cfg.Speech.VoiceID, nil
	}
	if cfg.Speech.VoiceDescription == "" {
		return defaultVoiceID, nil
	}

	cache, err := speech.OpenCache(filepath.Join(cfg.DataDir, "voices.json"))
	if err != nil {
		return "", fmt.Errorf("voice cache: %w", err)
	}
	if id := cache.Get(cfg.Speech.VoiceDescription, cfg.Speech.Language); id != "" {
		return id, nil
	}

	name := "docreel narrator"
	if cfg.Speech.Language != "" {
		name += " (" + cfg.Speech.Language + ")"
	}
	id, err := designer.DesignVoice(ctx, name, cfg.Speech.VoiceDescription)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voice design failed, using default voice: %v\n", err)
		return defaultVoiceID, nil
	}
	if err := cache.Put(cfg.Speech.VoiceDescription, cfg.Speech.Language, id); err != nil {
		return "", fmt.Errorf("voice cache: %w", err)
	}
	return id, nil
}
