package graph

// Edge is a static connection between two nodes: when From completes, To
// becomes eligible to run (subject to To's other incoming edges — a node
// with several static predecessors waits for all of them).
type Edge struct {
	From string
	To   string
}

// RouterFn picks the next hop after a conditional edge's source completes.
// It inspects the merged state and returns a label; the conditional edge
// maps labels to target nodes.
//
// Routers must be pure functions of state — no side effects, no I/O —
// because resume re-evaluates them against the restored checkpoint.
// Returning a label with no declared target halts the run with
// *UnroutableStateError.
type RouterFn func(state State) string

// conditionalEdge is a router attached to a source node with its declared
// label -> target mapping.
type conditionalEdge struct {
	from    string
	router  RouterFn
	targets map[string]string
}
