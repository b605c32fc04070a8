package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/model"
	"github.com/docreel/docreel-go/graph/store"
	"github.com/docreel/docreel-go/graph/tool"
	"github.com/docreel/docreel-go/render"
	"github.com/docreel/docreel-go/speech"
)

// universalReply satisfies every structured schema the pipeline asks
// for; decoders ignore the fields they don't need.
const universalReply = `{
	"summary": "Go maps in five facts",
	"key_concepts": ["maps", "comparable keys"],
	"toc": [{"title": "Maps", "page": 1}],
	"quiz_items": [{"question": "Are map reads safe concurrently?", "options": ["yes", "no"], "answer": "no"}],
	"persona": "junior Go developer",
	"skill_level": "beginner",
	"tone": "playful",
	"visual_style": "terminal aesthetic",
	"pacing": "fast",
	"top_messages": ["maps are reference-like"],
	"calls_to_action": ["follow for part two"],
	"hashtags": ["#golang"],
	"voice_tone": "upbeat",
	"scenes": [
		{"scene_number": 1, "on_screen_action": "typing", "dialogue_vo": "Learn maps in Go today", "on_screen_text": "MAPS"},
		{"scene_number": 2, "on_screen_action": "diagram", "dialogue_vo": "Keys must be comparable types", "on_screen_text": "KEYS"}
	],
	"asset_plan": [
		{"scene_name": "scene 1", "video_asset": ["keyboard closeup"], "bgm": ["lofi"], "sfx": []},
		{"scene_name": "scene 2", "video_asset": ["whiteboard"], "bgm": ["lofi"], "sfx": ["pop"]}
	]
}`

func universalClient() *model.MockClient {
	return &model.MockClient{Responses: []model.ChatOut{{Text: universalReply}}}
}

func testDeps(t *testing.T, client model.Client) Deps {
	t.Helper()
	return Deps{
		Model:          client,
		Tools:          tool.NewRegistry(),
		Store:          store.NewMemStore[graph.State](),
		MockProduction: true,
		DataDir:        t.TempDir(),
		MaxConcurrent:  2,
	}
}

func TestPipelineEndToEndMock(t *testing.T) {
	d := testDeps(t, universalClient())
	engine, err := New(d)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	final, err := engine.Run(t.Context(), "run-1", graph.State{KeyRawText: "Maps associate keys with values.\n\nKeys must be comparable."})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var meta ExportMetadata
	if err := decodeKey(final, KeyExportMetadata, &meta); err != nil {
		t.Fatalf("no export metadata: %v", err)
	}
	if meta.Format != "mp4" || meta.Resolution != "1080x1920" {
		t.Errorf("export = %+v", meta)
	}
	// two scenes at 5 words each, 0.35s per word
	if meta.Duration != 3.5 {
		t.Errorf("duration = %v, want 3.5", meta.Duration)
	}

	var timeline Timeline
	if err := decodeKey(final, KeyVideoTimeline, &timeline); err != nil {
		t.Fatalf("no timeline: %v", err)
	}
	if len(timeline.Scenes) != 2 {
		t.Fatalf("timeline scenes = %d", len(timeline.Scenes))
	}
	if timeline.Scenes[1].Start != timeline.Scenes[0].End {
		t.Errorf("scenes not contiguous: %+v", timeline.Scenes)
	}
	if timeline.Scenes[0].VideoFile == "" {
		t.Error("scene 1 has no video file")
	}

	if got := final.GetString(KeyHookConcept); got == "" {
		t.Error("no hook concept")
	}
	if got := final.GetString(KeyMemeConcept); got == "" {
		t.Error("no meme concept")
	}

	cp, err := d.Store.Load(t.Context(), "run-1")
	if err != nil {
		t.Fatalf("no outer checkpoint: %v", err)
	}
	if cp.Status != store.StatusCompleted {
		t.Errorf("status = %q", cp.Status)
	}

	// sub-graphs checkpoint under derived run IDs
	if _, err := d.Store.Load(t.Context(), "run-1/ingestion"); err != nil {
		t.Errorf("no ingestion checkpoint: %v", err)
	}
	if _, err := d.Store.Load(t.Context(), "run-1/story_studio/hook_meme"); err != nil {
		t.Errorf("no hook_meme checkpoint: %v", err)
	}
}

func TestPipelineEmptyDocumentFails(t *testing.T) {
	d := testDeps(t, universalClient())
	engine, err := New(d)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = engine.Run(t.Context(), "run-empty", graph.State{KeyRawText: "   "})
	if err == nil {
		t.Fatal("expected failure for empty document")
	}
	var pErr *graph.PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T", err)
	}
	if pErr.Node != "ingestion" {
		t.Errorf("failed node = %q", pErr.Node)
	}
}

func TestResearchLoopCallsTools(t *testing.T) {
	search := &tool.MockTool{
		ToolName:  "web_search",
		Desc:      "searches the web",
		Responses: []map[string]interface{}{{"results": "POV edits are trending"}},
	}
	client := &model.MockClient{Responses: []model.ChatOut{
		{ToolCalls: []model.ToolCall{{Name: "web_search", Input: map[string]interface{}{"query": "short video trends"}}}},
		{Text: "I have enough material."},
		{Text: "Trend report: POV edits dominate."},
	}}

	spec := researchSpec{
		name:      "trends",
		outputKey: KeyTrendsAnalysis,
		system:    "You research trends.",
		prompt:    func(s graph.State) string { return "Find trends for: " + s.GetString(KeySummary) },
	}
	cg, err := newResearchGraph(spec, client, tool.NewRegistry(search), 5)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	engine := graph.NewEngine(cg, store.NewMemStore[graph.State](), nil)
	final, err := engine.Run(t.Context(), "research-1", graph.State{KeySummary: "Go maps"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := final.GetString(KeyTrendsAnalysis); got != "Trend report: POV edits dominate." {
		t.Errorf("analysis = %q", got)
	}
	if search.CallCount() != 1 {
		t.Fatalf("tool calls = %d, want 1", search.CallCount())
	}
	if q := search.Calls[0].Input["query"]; q != "short video trends" {
		t.Errorf("tool input = %v", search.Calls[0].Input)
	}

	// agent ran twice with tools, respond once without
	var toolCalls, invokes int
	for _, c := range client.Calls {
		switch c.Method {
		case "tools":
			toolCalls++
		case "invoke":
			invokes++
		}
	}
	if toolCalls != 2 || invokes != 1 {
		t.Errorf("calls = %d tools + %d invoke", toolCalls, invokes)
	}
}

func TestResearchLoopAgentFailureFailsRun(t *testing.T) {
	client := &model.MockClient{Err: errors.New("anthropic: server_error: overloaded")}

	spec := researchSpec{
		name:      "slang",
		outputKey: KeySlangAnalysis,
		system:    "You research slang.",
		prompt:    func(graph.State) string { return "go" },
	}
	cg, err := newResearchGraph(spec, client, tool.NewRegistry(), 5)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	engine := graph.NewEngine(cg, store.NewMemStore[graph.State](), nil)
	_, err = engine.Run(t.Context(), "research-2", graph.State{})
	if err == nil {
		t.Fatal("expected failure: the agent itself cannot reach the model")
	}
	var pErr *graph.PipelineError
	if !errors.As(err, &pErr) || pErr.Node != "agent" {
		t.Errorf("error = %v", err)
	}
}

func TestHookMemeFanOut(t *testing.T) {
	d := testDeps(t, universalClient())
	cg, err := newHookMemeGraph(d)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	engine := graph.NewEngine(cg, d.Store, nil)
	final, err := engine.Run(t.Context(), "hm-1", graph.State{
		KeySummary:  "Go maps",
		KeyLanguage: "en",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, key := range []string{KeyTrendsAnalysis, KeySlangAnalysis, KeyHookConcept, KeyMemeConcept} {
		if final.GetString(key) == "" {
			t.Errorf("key %q not produced", key)
		}
	}
}

func TestRealProductionVoiceFailureIsData(t *testing.T) {
	d := testDeps(t, universalClient())
	d.MockProduction = false
	d.Synth = &failingSynth{}
	d.Render = &renderStub{}

	cg, err := newProductionGraph(d)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	scenes := []Scene{{SceneNumber: 1, DialogueVO: "Hello there"}}
	engine := graph.NewEngine(cg, d.Store, nil)
	final, err := engine.Run(t.Context(), "prod-1", graph.State{KeyScenes: scenes, KeyLanguage: "en"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var timings []VoiceTiming
	if err := decodeKey(final, KeyVoiceTiming, &timings); err != nil {
		t.Fatal(err)
	}
	if timings[0].Error == "" {
		t.Error("expected synthesis error recorded on the scene")
	}

	// the failed scene still occupies a fallback slot on the timeline
	var timeline Timeline
	if err := decodeKey(final, KeyVideoTimeline, &timeline); err != nil {
		t.Fatal(err)
	}
	if timeline.TotalDuration != fallbackSceneSeconds {
		t.Errorf("total duration = %v", timeline.TotalDuration)
	}
}

func TestSplitPages(t *testing.T) {
	t.Run("form feeds win", func(t *testing.T) {
		pages := splitPages("page one\ftwo\f\f three ")
		if len(pages) != 3 || pages[2] != "three" {
			t.Errorf("pages = %q", pages)
		}
	})

	t.Run("paragraphs pack to budget", func(t *testing.T) {
		big := strings.Repeat("x", pageSize)
		pages := splitPages(big + "\n\nsecond paragraph")
		if len(pages) != 2 {
			t.Fatalf("pages = %d", len(pages))
		}
		if pages[1] != "second paragraph" {
			t.Errorf("page 2 = %q", pages[1])
		}
	})
}

type failingSynth struct{}

func (failingSynth) Synthesize(ctx context.Context, voiceID, text, language string) (speech.Result, error) {
	return speech.Result{}, errors.New("synthesis quota exceeded")
}

// renderStub accepts every submission with a fixed artifact.
type renderStub struct{}

func (renderStub) Submit(ctx context.Context, req render.Request) (render.ArtifactRef, error) {
	return render.ArtifactRef{ID: "stub", Path: "/artifacts/" + req.Composition + ".mp4"}, nil
}
