package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/timing"
)

// mockSecondsPerWord paces the fabricated voice timings.
const mockSecondsPerWord = 0.35

// newMockProductionGraph compiles a deterministic stand-in for the
// production stage: voice timings are fabricated from the script and
// video assets are placeholder filenames, so the full pipeline can run
// without burning synthesis or render credits. Voice and assets run in
// parallel, matching the real stage's eventual shape.
func newMockProductionGraph(d Deps) (*graph.CompiledGraph, error) {
	voice := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var scenes []Scene
		if err := decodeKey(s, KeyScenes, &scenes); err != nil {
			return nil, err
		}

		timings := make([]VoiceTiming, len(scenes))
		for i, scene := range scenes {
			words := mockWords(scene.DialogueVO)
			duration := 0.0
			if len(words) > 0 {
				duration = words[len(words)-1].End
			}
			timings[i] = VoiceTiming{
				SceneNumber: scene.SceneNumber,
				Text:        scene.DialogueVO,
				AudioFile:   fmt.Sprintf("mock/audio/scene_%d.mp3", scene.SceneNumber),
				Duration:    duration,
				Words:       words,
			}
		}
		return graph.State{KeyVoiceTiming: timings}, nil
	})

	assets := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var scenes []Scene
		if err := decodeKey(s, KeyScenes, &scenes); err != nil {
			return nil, err
		}

		filenames := make([]string, len(scenes))
		for i, scene := range scenes {
			filenames[i] = fmt.Sprintf("mock/video/scene_%d.mp4", scene.SceneNumber)
		}
		return graph.State{KeyVideoFilenames: filenames}, nil
	})

	renderer := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var timings []VoiceTiming
		if err := decodeKey(s, KeyVoiceTiming, &timings); err != nil {
			return nil, err
		}
		filenames := stringSlice(s, KeyVideoFilenames)

		timeline := buildTimeline(timings)
		for i := range timeline.Scenes {
			if i < len(filenames) {
				timeline.Scenes[i].VideoFile = filenames[i]
			}
		}
		return graph.State{KeyVideoTimeline: timeline}, nil
	})

	qc := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var timeline Timeline
		if err := decodeKey(s, KeyVideoTimeline, &timeline); err != nil {
			return nil, err
		}
		return graph.State{
			KeyQCNotes: fmt.Sprintf("OK (mock review, %d scenes, %.1fs)", len(timeline.Scenes), timeline.TotalDuration),
		}, nil
	})

	return graph.New("production").
		AddNode("voice_and_timing", voice, graph.WithOutputs(KeyVoiceTiming)).
		AddNode("video_assets", assets, graph.WithOutputs(KeyVideoFilenames)).
		AddNode("video_editor_renderer", renderer, graph.WithOutputs(KeyVideoTimeline)).
		AddNode("qc_and_safety", qc, graph.WithOutputs(KeyQCNotes)).
		AddNode("deliver_export", exportNode(d), graph.WithOutputs(KeyExportMetadata)).
		AddEdge(graph.Start, "voice_and_timing").
		AddEdge(graph.Start, "video_assets").
		AddEdge("voice_and_timing", "video_editor_renderer").
		AddEdge("video_assets", "video_editor_renderer").
		AddEdge("video_editor_renderer", "qc_and_safety").
		AddEdge("qc_and_safety", "deliver_export").
		AddEdge("deliver_export", graph.End).
		Compile()
}

// mockWords fabricates evenly paced word timings for a line of dialogue.
func mockWords(text string) []timing.WordTiming {
	fields := strings.Fields(text)
	words := make([]timing.WordTiming, len(fields))
	for i, f := range fields {
		words[i] = timing.WordTiming{
			Word:  f,
			Start: float64(i) * mockSecondsPerWord,
			End:   float64(i+1) * mockSecondsPerWord,
		}
	}
	return words
}
