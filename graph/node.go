package graph

import "context"

// Start and End are the sentinel endpoints of every graph. Edges from
// Start mark entry nodes; edges into End mark exits. Neither sentinel
// executes.
const (
	Start = "__start__"
	End   = "__end__"
)

// Node is a processing unit in the workflow graph. It receives a snapshot
// of the run's state and returns a delta: only the keys it produced.
//
// Nodes must treat the snapshot as read-only beyond their own delta and
// must honor ctx cancellation on blocking work. A returned error halts the
// whole run; failures a node can absorb (a provider hiccup, one bad scene)
// should instead be recorded in the delta under an error key so downstream
// nodes can degrade gracefully.
type Node interface {
	// Run executes the node against state and returns the delta to merge.
	Run(ctx context.Context, state State) (State, error)
}

// NodeFunc adapts a plain function to the Node interface.
//
// Example:
//
//	summarize := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.State, error) {
//	    return graph.State{"summary": buildSummary(s.GetString("document_text"))}, nil
//	})
type NodeFunc func(ctx context.Context, state State) (State, error)

// Run implements Node.
func (f NodeFunc) Run(ctx context.Context, state State) (State, error) {
	return f(ctx, state)
}
