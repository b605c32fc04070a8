package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/model"
	"github.com/docreel/docreel-go/graph/tool"
)

// researchSpec parameterizes one bounded research loop: an agent that
// calls tools until it has enough material, then a respond step that
// distills the conversation into one analysis key.
type researchSpec struct {
	name      string // namespaces the loop's conversation keys
	outputKey string
	system    string
	// prompt builds the research brief from the incoming state.
	prompt func(graph.State) string
}

func (spec researchSpec) messagesKey() string { return spec.name + "_messages" }
func (spec researchSpec) pendingKey() string  { return spec.name + "_pending_calls" }

// newResearchGraph compiles the agent/tools/respond loop for spec.
//
// The router re-evaluates on resume, so the decision lives entirely in
// state: pending tool calls mean another tools round, otherwise respond.
func newResearchGraph(spec researchSpec, client model.Client, tools *tool.Registry, recursionLimit int) (*graph.CompiledGraph, error) {
	agent := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		messages, err := spec.conversation(s)
		if err != nil {
			return nil, err
		}

		out, err := client.InvokeWithTools(ctx, messages, tools.Specs())
		if err != nil {
			return nil, fmt.Errorf("research agent %q: %w", spec.name, err)
		}

		assistant := out.Text
		if len(out.ToolCalls) > 0 {
			calls, _ := json.Marshal(out.ToolCalls)
			assistant = string(calls)
		}
		messages = append(messages, model.Message{Role: model.RoleAssistant, Content: assistant})

		return graph.State{
			spec.messagesKey(): messages,
			spec.pendingKey():  out.ToolCalls,
		}, nil
	})

	toolsNode := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		var pending []model.ToolCall
		if err := decodeKey(s, spec.pendingKey(), &pending); err != nil {
			return nil, err
		}
		messages, err := spec.conversation(s)
		if err != nil {
			return nil, err
		}

		for _, call := range pending {
			result, err := tools.Dispatch(ctx, call)
			if err != nil {
				result = map[string]interface{}{"error": err.Error()}
			}
			payload, _ := json.Marshal(result)
			messages = append(messages, model.Message{
				Role:    model.RoleUser,
				Content: fmt.Sprintf("Result of %s: %s", call.Name, payload),
			})
		}

		return graph.State{
			spec.messagesKey(): messages,
			spec.pendingKey():  []model.ToolCall{},
		}, nil
	})

	respond := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
		messages, err := spec.conversation(s)
		if err != nil {
			return nil, err
		}

		var convo strings.Builder
		for _, msg := range messages {
			convo.WriteString(msg.Role)
			convo.WriteString(": ")
			convo.WriteString(msg.Content)
			convo.WriteString("\n\n")
		}
		convo.WriteString("Based on the research above, write the final analysis. ")
		convo.WriteString("Use ONLY information from the tool results.")

		analysis, err := client.Invoke(ctx, spec.system, convo.String())
		if err != nil {
			// a thin analysis degrades the video, it doesn't sink the run
			return graph.State{
				spec.outputKey:           "",
				ErrorKey(spec.outputKey): err.Error(),
			}, nil
		}
		return graph.State{spec.outputKey: analysis}, nil
	})

	router := func(s graph.State) string {
		var pending []model.ToolCall
		if err := decodeKey(s, spec.pendingKey(), &pending); err == nil && len(pending) > 0 {
			return "continue"
		}
		return "respond"
	}

	return graph.New(spec.name + "_research").
		AddNode("agent", agent,
			graph.WithOutputs(spec.messagesKey(), spec.pendingKey()),
			graph.WithRetry(&graph.RetryPolicy{
				MaxAttempts: 3,
				BaseDelay:   time.Second,
				MaxDelay:    15 * time.Second,
				Retryable:   model.Retryable,
			})).
		AddNode("tools", toolsNode, graph.WithOutputs(spec.messagesKey(), spec.pendingKey())).
		AddNode("respond", respond, graph.WithOutputs(spec.outputKey, ErrorKey(spec.outputKey))).
		AddEdge(graph.Start, "agent").
		AddEdge("tools", "agent").
		AddEdge("respond", graph.End).
		AddConditionalEdge("agent", router, map[string]string{
			"continue": "tools",
			"respond":  "respond",
		}).
		SetRecursionLimit(recursionLimit).
		Compile()
}

// conversation loads the loop's message history, seeding it from the
// spec's brief on the first turn.
func (spec researchSpec) conversation(s graph.State) ([]model.Message, error) {
	if hasKey(s, spec.messagesKey()) {
		var messages []model.Message
		if err := decodeKey(s, spec.messagesKey(), &messages); err != nil {
			return nil, err
		}
		return messages, nil
	}
	return []model.Message{
		{Role: model.RoleSystem, Content: spec.system},
		{Role: model.RoleUser, Content: spec.prompt(s)},
	}, nil
}
