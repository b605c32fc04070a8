package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/model"
)

// newStoryGraph compiles the story studio stage: profile the audience,
// run the hook-and-meme stage as a subgraph, script the scenes, then
// plan assets per scene.
func newStoryGraph(d Deps) (*graph.CompiledGraph, error) {
	hookMeme, err := newHookMemeGraph(d)
	if err != nil {
		return nil, err
	}

	profiler := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var profile AudienceProfile
		err := d.Model.InvokeStructured(ctx,
			"You profile target audiences for short-form educational videos.",
			fmt.Sprintf("Profile the ideal audience for a short video about this material and define the style that reaches them.\n\nSummary:\n%s\n\nKey concepts: %s",
				s.GetString(KeySummary), strings.Join(stringSlice(s, KeyKeyConcepts), ", ")),
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"persona":         map[string]interface{}{"type": "string"},
					"skill_level":     map[string]interface{}{"type": "string"},
					"tone":            map[string]interface{}{"type": "string"},
					"visual_style":    map[string]interface{}{"type": "string"},
					"pacing":          map[string]interface{}{"type": "string"},
					"top_messages":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"calls_to_action": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"hashtags":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"voice_tone":      map[string]interface{}{"type": "string"},
				},
				"required": []string{"persona", "tone", "visual_style"},
			}, &profile)
		if err != nil {
			return nil, fmt.Errorf("audience profiling: %w", err)
		}
		return graph.State{KeyAudienceProfile: profile}, nil
	})

	scripter := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var out struct {
			Scenes []Scene `json:"scenes"`
		}
		err := d.Model.InvokeStructured(ctx,
			"You write scene-by-scene scripts for 60-second vertical videos. Every scene has on-screen action, voice-over dialogue, and on-screen text.",
			fmt.Sprintf("Write the script. Open with the hook, land the meme mid-video, and close with a call to action.\n\nSummary:\n%s\n\nHook concept:\n%s\n\nMeme concept:\n%s\n\nAudience:\n%s",
				s.GetString(KeySummary), s.GetString(KeyHookConcept), s.GetString(KeyMemeConcept), profileBrief(s)),
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"scenes": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"scene_number":     map[string]interface{}{"type": "integer"},
								"on_screen_action": map[string]interface{}{"type": "string"},
								"dialogue_vo":      map[string]interface{}{"type": "string"},
								"on_screen_text":   map[string]interface{}{"type": "string"},
							},
							"required": []string{"scene_number", "dialogue_vo"},
						},
					},
				},
				"required": []string{"scenes"},
			}, &out)
		if err != nil {
			return nil, fmt.Errorf("scene script: %w", err)
		}
		if len(out.Scenes) == 0 {
			return nil, fmt.Errorf("scene script: model returned no scenes")
		}
		for i := range out.Scenes {
			if out.Scenes[i].SceneNumber == 0 {
				out.Scenes[i].SceneNumber = i + 1
			}
		}
		return graph.State{KeyScenes: out.Scenes}, nil
	})

	planner := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var scenes []Scene
		if err := decodeKey(s, KeyScenes, &scenes); err != nil {
			return nil, err
		}

		var brief strings.Builder
		for _, sc := range scenes {
			fmt.Fprintf(&brief, "Scene %d: %s\nVO: %s\n\n", sc.SceneNumber, sc.OnScreenAction, sc.DialogueVO)
		}

		var out struct {
			Plan []SceneAssets `json:"asset_plan"`
		}
		err := d.Model.InvokeStructured(ctx,
			"You plan stock video, background music, and sound effects per scene for short-form videos.",
			fmt.Sprintf("Plan the assets for each scene. Use short search phrases an asset library would accept.\n\nVisual style: %s\n\n%s",
				visualStyle(s), brief.String()),
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"asset_plan": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"scene_name":  map[string]interface{}{"type": "string"},
								"video_asset": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
								"bgm":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
								"sfx":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
							},
						},
					},
				},
			}, &out)
		if err != nil {
			// a missing plan means default assets downstream, not a dead run
			return graph.State{
				KeyAssetPlan:           []SceneAssets{},
				ErrorKey(KeyAssetPlan): err.Error(),
			}, nil
		}
		return graph.State{KeyAssetPlan: out.Plan}, nil
	})

	retry := &graph.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    15 * time.Second,
		Retryable:   model.Retryable,
	}

	return graph.New("story_studio").
		AddNode("audience_and_style_profiler", profiler, graph.WithOutputs(KeyAudienceProfile), graph.WithRetry(retry)).
		AddNode("hook_and_meme", graph.Subgraph(graph.NewEngine(hookMeme, d.Store, d.Emitter, d.engineOpts()...)),
			graph.WithOutputs(KeyHookConcept, KeyMemeConcept, KeyTrendsAnalysis, KeySlangAnalysis)).
		AddNode("scene_by_scene_script", scripter, graph.WithOutputs(KeyScenes), graph.WithRetry(retry)).
		AddNode("asset_planner", planner, graph.WithOutputs(KeyAssetPlan, ErrorKey(KeyAssetPlan)), graph.WithRetry(retry)).
		AddEdge(graph.Start, "audience_and_style_profiler").
		AddEdge("audience_and_style_profiler", "hook_and_meme").
		AddEdge("hook_and_meme", "scene_by_scene_script").
		AddEdge("scene_by_scene_script", "asset_planner").
		AddEdge("asset_planner", graph.End).
		Compile()
}

func visualStyle(s graph.State) string {
	var p AudienceProfile
	if err := decodeKey(s, KeyAudienceProfile, &p); err != nil {
		return "clean and minimal"
	}
	return p.VisualStyle
}
