package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/model"
	"github.com/docreel/docreel-go/render"
	"github.com/docreel/docreel-go/timing"
)

// fallbackSceneSeconds pads the timeline for scenes whose synthesis
// failed or returned no alignment.
const fallbackSceneSeconds = 4.0

// newProductionGraph compiles the production stage: synthesize voice
// with word timings, render the video, QC it, then package the export.
func newProductionGraph(d Deps) (*graph.CompiledGraph, error) {
	return graph.New("production").
		AddNode("voice_and_timing", voiceAndTimingNode(d), graph.WithOutputs(KeyVoiceTiming)).
		AddNode("video_editor_renderer", videoRendererNode(d), graph.WithOutputs(KeyVideoTimeline, KeyVideoFilenames, ErrorKey(KeyVideoFilenames))).
		AddNode("qc_and_safety", qcNode(d), graph.WithOutputs(KeyQCNotes, ErrorKey(KeyQCNotes)), graph.WithRetry(modelRetry())).
		AddNode("deliver_export", exportNode(d), graph.WithOutputs(KeyExportMetadata)).
		AddEdge(graph.Start, "voice_and_timing").
		AddEdge("voice_and_timing", "video_editor_renderer").
		AddEdge("video_editor_renderer", "qc_and_safety").
		AddEdge("qc_and_safety", "deliver_export").
		AddEdge("deliver_export", graph.End).
		Compile()
}

func modelRetry() *graph.RetryPolicy {
	return &graph.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    15 * time.Second,
		Retryable:   model.Retryable,
	}
}

// voiceAndTimingNode synthesizes every scene's voice-over and derives
// word timings from the character alignment. Scene failures are recorded
// on the scene entry so one bad synthesis doesn't abort the whole run.
func voiceAndTimingNode(d Deps) graph.Node {
	return graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var scenes []Scene
		if err := decodeKey(s, KeyScenes, &scenes); err != nil {
			return nil, err
		}

		audioDir := filepath.Join(d.DataDir, "audio", sanitizeRunID(graph.RunIDFromContext(ctx)))
		if err := os.MkdirAll(audioDir, 0o755); err != nil {
			return nil, fmt.Errorf("audio dir: %w", err)
		}

		language := s.GetString(KeyLanguage)
		timings := make([]VoiceTiming, len(scenes))

		maxConcurrent := d.MaxConcurrent
		if maxConcurrent < 1 {
			maxConcurrent = 2
		}
		sem := make(chan struct{}, maxConcurrent)
		var wg sync.WaitGroup

		for i, scene := range scenes {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				return nil, ctx.Err()
			}

			wg.Add(1)
			go func(i int, scene Scene) {
				defer wg.Done()
				defer func() { <-sem }()
				timings[i] = synthesizeScene(ctx, d, audioDir, scene, language)
			}(i, scene)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return graph.State{KeyVoiceTiming: timings}, nil
	})
}

func synthesizeScene(ctx context.Context, d Deps, audioDir string, scene Scene, language string) VoiceTiming {
	vt := VoiceTiming{SceneNumber: scene.SceneNumber, Text: scene.DialogueVO}

	result, err := d.Synth.Synthesize(ctx, d.VoiceID, scene.DialogueVO, language)
	if err != nil {
		vt.Error = err.Error()
		return vt
	}

	path := filepath.Join(audioDir, fmt.Sprintf("scene_%d.mp3", scene.SceneNumber))
	if err := os.WriteFile(path, result.Audio, 0o644); err != nil {
		vt.Error = err.Error()
		return vt
	}

	vt.AudioFile = path
	vt.Words = timing.WordsFromCharacters(result.Timings)
	vt.Duration = timing.Duration(result.Timings)
	return vt
}

// videoRendererNode assembles the edit timeline from the voice timings
// and submits one render per scene. Render failures degrade to an error
// key with whatever scene videos did come back.
func videoRendererNode(d Deps) graph.Node {
	return graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var timings []VoiceTiming
		if err := decodeKey(s, KeyVoiceTiming, &timings); err != nil {
			return nil, err
		}
		var plan []SceneAssets
		if hasKey(s, KeyAssetPlan) {
			_ = decodeKey(s, KeyAssetPlan, &plan)
		}

		timeline := buildTimeline(timings)

		reqs := make([]render.Request, len(timeline.Scenes))
		for i, ts := range timeline.Scenes {
			props := map[string]interface{}{
				"scene_number": ts.SceneNumber,
				"duration":     ts.End - ts.Start,
				"audio_file":   ts.AudioFile,
				"captions":     ts.Captions,
			}
			if i < len(plan) {
				props["assets"] = plan[i]
			}
			reqs[i] = render.Request{Composition: fmt.Sprintf("scene-%d", ts.SceneNumber), Props: props}
		}

		results := render.SubmitAll(ctx, d.Render, reqs, d.MaxConcurrent)

		filenames := make([]string, 0, len(results))
		var failures []string
		for i, r := range results {
			if r.Err != nil {
				failures = append(failures, fmt.Sprintf("scene %d: %v", timeline.Scenes[i].SceneNumber, r.Err))
				continue
			}
			timeline.Scenes[i].VideoFile = r.Ref.Path
			filenames = append(filenames, r.Ref.Path)
		}

		delta := graph.State{
			KeyVideoTimeline:  timeline,
			KeyVideoFilenames: filenames,
		}
		if len(failures) > 0 {
			delta[ErrorKey(KeyVideoFilenames)] = strings.Join(failures, "; ")
		}
		return delta, nil
	})
}

// buildTimeline lays the scenes end to end. Failed scenes still occupy a
// fixed slot so scene numbering and pacing survive a degraded synthesis.
func buildTimeline(timings []VoiceTiming) Timeline {
	var timeline Timeline
	cursor := 0.0
	for _, vt := range timings {
		duration := vt.Duration
		if duration <= 0 {
			duration = fallbackSceneSeconds
		}

		captions := make([]string, 0, len(vt.Words))
		for _, w := range vt.Words {
			captions = append(captions, w.Word)
		}

		timeline.Scenes = append(timeline.Scenes, TimelineScene{
			SceneNumber: vt.SceneNumber,
			Start:       cursor,
			End:         cursor + duration,
			AudioFile:   vt.AudioFile,
			Captions:    captions,
		})
		cursor += duration
	}
	timeline.TotalDuration = cursor
	return timeline
}

// qcNode reviews the script and timeline for safety and quality issues.
// QC is advisory; a model failure records the miss and the run goes on.
func qcNode(d Deps) graph.Node {
	return graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var timeline Timeline
		if err := decodeKey(s, KeyVideoTimeline, &timeline); err != nil {
			return nil, err
		}
		var scenes []Scene
		if err := decodeKey(s, KeyScenes, &scenes); err != nil {
			return nil, err
		}

		var script strings.Builder
		for _, sc := range scenes {
			fmt.Fprintf(&script, "Scene %d VO: %s\nOn screen: %s\n", sc.SceneNumber, sc.DialogueVO, sc.OnScreenText)
		}

		notes, err := d.Model.Invoke(ctx,
			"You QC short-form videos before publication. Flag safety issues, factual red flags, and pacing problems. Reply with a short list of notes, or 'OK' if clean.",
			fmt.Sprintf("Total duration: %.1fs across %d scenes.\n\nScript:\n%s", timeline.TotalDuration, len(timeline.Scenes), script.String()))
		if err != nil {
			return graph.State{KeyQCNotes: "", ErrorKey(KeyQCNotes): err.Error()}, nil
		}
		return graph.State{KeyQCNotes: notes}, nil
	})
}

// exportNode packages the final deliverable metadata.
func exportNode(d Deps) graph.Node {
	return graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var timeline Timeline
		if err := decodeKey(s, KeyVideoTimeline, &timeline); err != nil {
			return nil, err
		}

		var profile AudienceProfile
		_ = decodeKey(s, KeyAudienceProfile, &profile)

		runID := sanitizeRunID(graph.RunIDFromContext(ctx))
		meta := ExportMetadata{
			Filename:    fmt.Sprintf("%s.mp4", runID),
			Duration:    timeline.TotalDuration,
			Resolution:  "1080x1920",
			Format:      "mp4",
			Hashtags:    profile.Hashtags,
			Description: s.GetString(KeySummary),
		}
		return graph.State{KeyExportMetadata: meta}, nil
	})
}

// sanitizeRunID makes a run ID safe as a path component. Subgraph run
// IDs contain slashes.
func sanitizeRunID(runID string) string {
	if runID == "" {
		return "run"
	}
	return strings.ReplaceAll(runID, "/", "_")
}
