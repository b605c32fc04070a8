package graph

import "context"

// subgraphNode runs a fully configured engine as a single node of an
// outer graph.
type subgraphNode struct {
	engine *Engine
}

// Subgraph wraps an engine so its whole graph executes as one node. The
// outer state is the child run's initial state, and the child's final
// state is returned as the node's delta — the flat key namespace makes
// both directions a plain key union.
//
// The child run ID is derived from the parent's ("<parent>/<graph name>"),
// so a pipeline's sub-graphs leave their own checkpoint trail. Child
// failures propagate as node errors and halt the outer run.
func Subgraph(engine *Engine) Node {
	return &subgraphNode{engine: engine}
}

// Run implements Node.
func (s *subgraphNode) Run(ctx context.Context, state State) (State, error) {
	childID := s.engine.graph.name
	if parent := RunIDFromContext(ctx); parent != "" {
		childID = parent + "/" + s.engine.graph.name
	}
	return s.engine.Run(ctx, childID, state)
}
