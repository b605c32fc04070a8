// Package model defines the text-generation client interface the pipeline
// nodes program against, plus the shared prompt protocol that makes tool
// use and structured output behave identically across providers.
package model

import "context"

// Client is the provider-agnostic surface for text generation.
//
// Implementations live in the anthropic, openai, and google subpackages and
// wrap the official SDKs. MockClient serves tests. All methods respect
// context cancellation; transport-level retries are left to the caller
// (pipeline nodes attach a graph.RetryPolicy instead).
type Client interface {
	// Invoke sends a single system+user prompt pair and returns the
	// generated text.
	Invoke(ctx context.Context, system, user string) (string, error)

	// InvokeStructured asks the provider for a JSON document matching
	// schema (JSON Schema format) and decodes it into out. Markdown fences
	// and stray prose around the JSON are tolerated.
	InvokeStructured(ctx context.Context, system, user string, schema map[string]interface{}, out interface{}) error

	// InvokeWithTools runs one turn of a tool-use conversation. The reply
	// carries either text or tool calls (occasionally both); tool results
	// go back in as ordinary messages on the next turn.
	InvokeWithTools(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Role constants for Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the model may call. Schema follows JSON Schema
// and describes the tool's input object.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ChatOut is the result of one tool-use turn: generated text, tool calls,
// or both.
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolCall is a request from the model to invoke a named tool.
type ToolCall struct {
	Name  string
	Input map[string]interface{}
}
