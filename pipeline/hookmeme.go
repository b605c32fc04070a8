package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/model"
)

// newHookMemeGraph compiles the hook-and-meme stage. Two research loops
// fan out from Start (social media trends and language slang), and both
// the hook and the meme concept join on their analyses.
func newHookMemeGraph(d Deps) (*graph.CompiledGraph, error) {
	trendsSpec := researchSpec{
		name:      "trends",
		outputKey: KeyTrendsAnalysis,
		system: "You are a social media trend researcher. Use the available tools to find " +
			"current short-form video trends relevant to the topic, then report what you found.",
		prompt: func(s graph.State) string {
			return fmt.Sprintf("Research current short-form video trends for this topic.\n\nTopic summary:\n%s\n\nAudience:\n%s",
				s.GetString(KeySummary), profileBrief(s))
		},
	}
	slangSpec := researchSpec{
		name:      "slang",
		outputKey: KeySlangAnalysis,
		system: "You are a language researcher. Use the available tools to find current slang " +
			"and phrasing the target audience actually uses, then report what you found.",
		prompt: func(s graph.State) string {
			return fmt.Sprintf("Research slang and natural phrasing for this audience in language %q.\n\nAudience:\n%s",
				s.GetString(KeyLanguage), profileBrief(s))
		},
	}

	trendsGraph, err := newResearchGraph(trendsSpec, d.Model, d.Tools, d.RecursionLimit)
	if err != nil {
		return nil, err
	}
	slangGraph, err := newResearchGraph(slangSpec, d.Model, d.Tools, d.RecursionLimit)
	if err != nil {
		return nil, err
	}

	hook := conceptNode(d.Model, KeyHookConcept,
		"You design opening hooks for short-form educational videos.",
		"Using the research below, write ONE hook concept for the first 3 seconds of the video: "+
			"the exact opening line plus a one-sentence visual direction.")
	meme := conceptNode(d.Model, KeyMemeConcept,
		"You design meme moments for short-form educational videos.",
		"Using the research below, write ONE meme concept to drop mid-video: "+
			"the meme format, the caption, and where in the video it lands.")

	return graph.New("hook_meme").
		AddNode("social_media_trends", graph.Subgraph(graph.NewEngine(trendsGraph, d.Store, d.Emitter, d.engineOpts()...)),
			graph.WithOutputs(KeyTrendsAnalysis, ErrorKey(KeyTrendsAnalysis), trendsSpec.messagesKey(), trendsSpec.pendingKey())).
		AddNode("language_slang", graph.Subgraph(graph.NewEngine(slangGraph, d.Store, d.Emitter, d.engineOpts()...)),
			graph.WithOutputs(KeySlangAnalysis, ErrorKey(KeySlangAnalysis), slangSpec.messagesKey(), slangSpec.pendingKey())).
		AddNode("hook_concept", hook, graph.WithOutputs(KeyHookConcept, ErrorKey(KeyHookConcept))).
		AddNode("meme_concept", meme, graph.WithOutputs(KeyMemeConcept, ErrorKey(KeyMemeConcept))).
		AddEdge(graph.Start, "social_media_trends").
		AddEdge(graph.Start, "language_slang").
		AddEdge("social_media_trends", "hook_concept").
		AddEdge("social_media_trends", "meme_concept").
		AddEdge("language_slang", "hook_concept").
		AddEdge("language_slang", "meme_concept").
		AddEdge("hook_concept", graph.End).
		AddEdge("meme_concept", graph.End).
		Compile()
}

// conceptNode builds a creative node that distills the joined research
// into one concept under key. Model failures degrade to an error key so
// the video still ships without that concept.
func conceptNode(client model.Client, key, system, task string) graph.Node {
	return graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		prompt := fmt.Sprintf("%s\n\nTrend research:\n%s\n\nSlang research:\n%s\n\nAudience:\n%s\n\nTopic summary:\n%s",
			task,
			s.GetString(KeyTrendsAnalysis),
			s.GetString(KeySlangAnalysis),
			profileBrief(s),
			s.GetString(KeySummary))

		concept, err := retryInvoke(ctx, client, system, prompt)
		if err != nil {
			return graph.State{key: "", ErrorKey(key): err.Error()}, nil
		}
		return graph.State{key: concept}, nil
	})
}

// retryInvoke wraps a single Invoke with the same transient-failure
// policy the graph nodes use, for calls made outside a node retry.
func retryInvoke(ctx context.Context, client model.Client, system, prompt string) (string, error) {
	var lastErr error
	delay := time.Second
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		out, err := client.Invoke(ctx, system, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !model.Retryable(err) {
			break
		}
	}
	return "", lastErr
}

// profileBrief renders the audience profile for inclusion in prompts,
// or a placeholder when profiling has not run yet.
func profileBrief(s graph.State) string {
	var p AudienceProfile
	if err := decodeKey(s, KeyAudienceProfile, &p); err != nil {
		return "(no audience profile yet)"
	}
	return fmt.Sprintf("persona: %s\nskill level: %s\ntone: %s\nvisual style: %s\npacing: %s\nvoice tone: %s",
		p.Persona, p.SkillLevel, p.Tone, p.VisualStyle, p.Pacing, p.VoiceTone)
}
