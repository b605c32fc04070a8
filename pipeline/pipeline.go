package pipeline

import (
	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/emit"
	"github.com/docreel/docreel-go/graph/model"
	"github.com/docreel/docreel-go/graph/store"
	"github.com/docreel/docreel-go/graph/tool"
	"github.com/docreel/docreel-go/render"
	"github.com/docreel/docreel-go/speech"
)

// Deps wires the pipeline to its external services and the engine's
// infrastructure. Every sub-graph engine shares the same store and
// emitter, so a whole run's checkpoints and events land in one place.
type Deps struct {
	Model  model.Client
	Synth  speech.Synthesizer
	Render render.Client
	Tools  *tool.Registry

	Store   store.Store[graph.State]
	Emitter emit.Emitter
	Metrics *graph.PrometheusMetrics

	// DataDir receives audio files and other run artifacts.
	DataDir string

	// VoiceID selects the synthesis voice.
	VoiceID string

	// RecursionLimit bounds the research loops; zero means the engine
	// default.
	RecursionLimit int

	// MaxConcurrent caps parallel node execution and fan-out to the
	// synthesis and render services.
	MaxConcurrent int

	// MockProduction swaps the production stage for deterministic
	// stand-ins.
	MockProduction bool
}

func (d Deps) engineOpts() []graph.Option {
	opts := []graph.Option{}
	if d.MaxConcurrent > 0 {
		opts = append(opts, graph.WithMaxConcurrent(d.MaxConcurrent))
	}
	if d.Metrics != nil {
		opts = append(opts, graph.WithMetrics(d.Metrics))
	}
	return opts
}

// New builds the document-to-video pipeline: ingestion, story studio,
// and production composed as sub-graphs of one outer engine. Run it with
// an initial state carrying KeyRawText (and optionally KeyLanguage).
func New(d Deps) (*graph.Engine, error) {
	ingestion, err := newIngestionGraph(d.Model)
	if err != nil {
		return nil, err
	}
	story, err := newStoryGraph(d)
	if err != nil {
		return nil, err
	}

	var production *graph.CompiledGraph
	if d.MockProduction {
		production, err = newMockProductionGraph(d)
	} else {
		production, err = newProductionGraph(d)
	}
	if err != nil {
		return nil, err
	}

	main, err := graph.New("docreel").
		AddNode("ingestion", graph.Subgraph(graph.NewEngine(ingestion, d.Store, d.Emitter, d.engineOpts()...)),
			graph.WithInputs(KeyRawText),
			graph.WithOutputs(KeyPages, KeySummary, KeyKeyConcepts, KeyTOC, KeyQuizItems)).
		AddNode("story_studio", graph.Subgraph(graph.NewEngine(story, d.Store, d.Emitter, d.engineOpts()...)),
			graph.WithOutputs(KeyAudienceProfile, KeyHookConcept, KeyMemeConcept, KeyScenes, KeyAssetPlan)).
		AddNode("production", graph.Subgraph(graph.NewEngine(production, d.Store, d.Emitter, d.engineOpts()...)),
			graph.WithOutputs(KeyVoiceTiming, KeyVideoTimeline, KeyVideoFilenames, KeyQCNotes, KeyExportMetadata)).
		AddEdge(graph.Start, "ingestion").
		AddEdge("ingestion", "story_studio").
		AddEdge("story_studio", "production").
		AddEdge("production", graph.End).
		Compile()
	if err != nil {
		return nil, err
	}

	return graph.NewEngine(main, d.Store, d.Emitter, d.engineOpts()...), nil
}
