// Package tool defines executable tools for the research loop: things a
// model can ask for by name with a JSON input and get structured data back.
package tool

import (
	"context"
	"fmt"

	"github.com/docreel/docreel-go/graph/model"
)

// Tool is an executable capability a model may invoke.
//
// Implementations validate their input, respect context cancellation, and
// return structured output. Name must match what the model is offered in
// its ToolSpec.
type Tool interface {
	Name() string
	Description() string

	// Schema describes the expected input object in JSON Schema form.
	// May be nil for parameterless tools.
	Schema() map[string]interface{}

	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}

// Registry holds the tools available to one agent and dispatches the
// model's tool calls to them. Not safe for concurrent mutation; build it
// up front and share it read-only.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates a registry with the given tools. Duplicate names
// keep the last registration.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Add(t)
	}
	return r
}

// Add registers a tool.
func (r *Registry) Add(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the named tool, or nil.
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// Specs returns the registry as model.ToolSpec values, in registration
// order, ready to hand to Client.InvokeWithTools.
func (r *Registry) Specs() []model.ToolSpec {
	specs := make([]model.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, model.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	return specs
}

// Dispatch executes one model tool call. Unknown tool names are an error;
// tool execution errors come back as data so the agent can see them and
// adjust, matching how failed lookups read to the model.
func (r *Registry) Dispatch(ctx context.Context, call model.ToolCall) (map[string]interface{}, error) {
	t := r.Get(call.Name)
	if t == nil {
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
	out, err := t.Call(ctx, call.Input)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}, nil
	}
	return out, nil
}
