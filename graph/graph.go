package graph

import (
	"fmt"
	"sort"
	"time"
)

// DefaultRecursionLimit bounds declared loops when SetRecursionLimit is
// called without a positive value.
const DefaultRecursionLimit = 15

// Graph is a workflow under construction: nodes plus static and
// conditional edges between them. Build one with New, wire it up, then
// Compile it into an executable CompiledGraph.
//
// Graph is not safe for concurrent mutation; build it in one goroutine.
type Graph struct {
	name           string
	nodes          map[string]Node
	meta           map[string]*nodeMeta
	order          []string
	edges          []Edge
	conditionals   map[string]*conditionalEdge
	recursionLimit int

	issues []string
}

// nodeMeta carries per-node declarations and execution policy.
type nodeMeta struct {
	inputs  []string
	outputs []string
	timeout time.Duration
	retry   *RetryPolicy
}

// NodeOption configures a node at AddNode time.
type NodeOption func(*nodeMeta)

// WithInputs declares the state keys a node reads. The declaration is
// documentation for graph readers; the engine does not restrict reads.
func WithInputs(keys ...string) NodeOption {
	return func(m *nodeMeta) { m.inputs = append(m.inputs, keys...) }
}

// WithOutputs declares the state keys a node writes. Compile uses output
// declarations to reject parallel branches that would collide on a key.
func WithOutputs(keys ...string) NodeOption {
	return func(m *nodeMeta) { m.outputs = append(m.outputs, keys...) }
}

// WithTimeout caps a single node's execution time, overriding the
// engine-wide default.
func WithTimeout(d time.Duration) NodeOption {
	return func(m *nodeMeta) { m.timeout = d }
}

// WithRetry attaches a retry policy for transient node failures.
func WithRetry(policy *RetryPolicy) NodeOption {
	return func(m *nodeMeta) { m.retry = policy }
}

// New creates an empty graph with the given name. The name appears in
// validation errors and observability events.
func New(name string) *Graph {
	return &Graph{
		name:         name,
		nodes:        make(map[string]Node),
		meta:         make(map[string]*nodeMeta),
		conditionals: make(map[string]*conditionalEdge),
	}
}

// AddNode registers a named node. Names must be unique and must not be the
// Start or End sentinels; violations surface at Compile.
func (g *Graph) AddNode(name string, node Node, opts ...NodeOption) *Graph {
	if name == Start || name == End {
		g.issues = append(g.issues, fmt.Sprintf("node name %q is reserved", name))
		return g
	}
	if _, exists := g.nodes[name]; exists {
		g.issues = append(g.issues, fmt.Sprintf("duplicate node %q", name))
		return g
	}
	if node == nil {
		g.issues = append(g.issues, fmt.Sprintf("node %q is nil", name))
		return g
	}

	m := &nodeMeta{}
	for _, opt := range opts {
		opt(m)
	}
	g.nodes[name] = node
	g.meta[name] = m
	g.order = append(g.order, name)
	return g
}

// AddEdge adds a static edge from -> to. Use Start as from for entry nodes
// and End as to for exits. Several edges into one node form a join: the
// node runs once all of them have fired.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges = append(g.edges, Edge{From: from, To: to})
	return g
}

// AddConditionalEdge attaches a router to from. After from completes, the
// router inspects the merged state and returns a label; execution continues
// at targets[label]. A node carries at most one conditional edge.
func (g *Graph) AddConditionalEdge(from string, router RouterFn, targets map[string]string) *Graph {
	if _, exists := g.conditionals[from]; exists {
		g.issues = append(g.issues, fmt.Sprintf("duplicate conditional edge on node %q", from))
		return g
	}
	if router == nil {
		g.issues = append(g.issues, fmt.Sprintf("conditional edge on node %q has nil router", from))
		return g
	}
	if len(targets) == 0 {
		g.issues = append(g.issues, fmt.Sprintf("conditional edge on node %q has no targets", from))
		return g
	}
	g.conditionals[from] = &conditionalEdge{from: from, router: router, targets: targets}
	return g
}

// SetRecursionLimit declares that the graph contains a bounded loop and
// sets its iteration budget. Values <= 0 use DefaultRecursionLimit. A
// graph with a cycle but no declared limit fails Compile.
func (g *Graph) SetRecursionLimit(n int) *Graph {
	if n <= 0 {
		n = DefaultRecursionLimit
	}
	g.recursionLimit = n
	return g
}

// CompiledGraph is an immutable, validated graph ready for execution.
// Compile once, run many times: the engine keeps all per-run state
// outside the compiled structure.
type CompiledGraph struct {
	name           string
	nodes          map[string]Node
	meta           map[string]*nodeMeta
	order          []string
	staticOut      map[string][]string
	conditionals   map[string]*conditionalEdge
	backEdges      map[Edge]bool
	expected       map[string]int // incoming non-back static edges
	hasCondIn      map[string]bool
	recursionLimit int
}

// Name returns the graph's name.
func (cg *CompiledGraph) Name() string { return cg.name }

// Compile validates the graph and freezes it for execution.
//
// It rejects, collected into one *GraphValidationError:
//   - references to undefined nodes
//   - edges into Start or out of End
//   - a Start with no outgoing edge, or an unreachable End
//   - cycles without a declared recursion limit
//   - sibling fan-out branches whose declared outputs overlap
func (g *Graph) Compile() (*CompiledGraph, error) {
	issues := append([]string{}, g.issues...)

	known := func(name string) bool {
		if name == Start || name == End {
			return true
		}
		_, ok := g.nodes[name]
		return ok
	}

	staticOut := make(map[string][]string)
	for _, e := range g.edges {
		if !known(e.From) {
			issues = append(issues, fmt.Sprintf("edge from undefined node %q", e.From))
			continue
		}
		if !known(e.To) {
			issues = append(issues, fmt.Sprintf("edge to undefined node %q", e.To))
			continue
		}
		if e.To == Start {
			issues = append(issues, fmt.Sprintf("edge %s -> %s enters the start sentinel", e.From, e.To))
			continue
		}
		if e.From == End {
			issues = append(issues, fmt.Sprintf("edge %s -> %s leaves the end sentinel", e.From, e.To))
			continue
		}
		staticOut[e.From] = append(staticOut[e.From], e.To)
	}

	for from, ce := range g.conditionals {
		if !known(from) || from == Start || from == End {
			issues = append(issues, fmt.Sprintf("conditional edge on undefined or sentinel node %q", from))
			continue
		}
		for label, target := range ce.targets {
			if !known(target) || target == Start {
				issues = append(issues, fmt.Sprintf("conditional edge on %q: label %q targets invalid node %q", from, label, target))
			}
		}
	}

	if len(staticOut[Start]) == 0 {
		issues = append(issues, "no edge out of the start sentinel")
	}

	cg := &CompiledGraph{
		name:           g.name,
		nodes:          g.nodes,
		meta:           g.meta,
		order:          g.order,
		staticOut:      staticOut,
		conditionals:   g.conditionals,
		recursionLimit: g.recursionLimit,
	}

	if len(issues) == 0 {
		cg.backEdges = cg.classifyBackEdges()
		issues = append(issues, cg.checkReachability()...)
		if len(cg.backEdges) > 0 && cg.recursionLimit == 0 {
			issues = append(issues, "graph contains a cycle but no recursion limit is declared")
		}
		issues = append(issues, cg.checkBranchOutputs()...)
	}

	if len(issues) > 0 {
		return nil, &GraphValidationError{Graph: g.name, Issues: issues}
	}

	cg.expected = make(map[string]int)
	cg.hasCondIn = make(map[string]bool)
	for from, tos := range staticOut {
		for _, to := range tos {
			if cg.backEdges[Edge{From: from, To: to}] {
				continue
			}
			cg.expected[to]++
		}
	}
	for _, ce := range g.conditionals {
		for _, target := range ce.targets {
			cg.hasCondIn[target] = true
		}
	}

	return cg, nil
}

// successors returns every node an edge from name can lead to: static
// targets plus all declared conditional targets.
func (cg *CompiledGraph) successors(name string) []string {
	out := append([]string{}, cg.staticOut[name]...)
	if ce, ok := cg.conditionals[name]; ok {
		labels := make([]string, 0, len(ce.targets))
		for label := range ce.targets {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			out = append(out, ce.targets[label])
		}
	}
	return out
}

// classifyBackEdges runs a DFS from Start and marks edges that close a
// cycle. Back edges are excluded from join barriers and counted against
// the recursion limit instead.
func (cg *CompiledGraph) classifyBackEdges() map[Edge]bool {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	color := make(map[string]int)
	back := make(map[Edge]bool)

	var visit func(name string)
	visit = func(name string) {
		color[name] = onStack
		for _, next := range cg.successors(name) {
			switch color[next] {
			case unvisited:
				visit(next)
			case onStack:
				back[Edge{From: name, To: next}] = true
			}
		}
		color[name] = done
	}
	visit(Start)
	return back
}

// checkReachability verifies every node is on a path from Start and that
// End is reachable.
func (cg *CompiledGraph) checkReachability() []string {
	reached := cg.reachableFrom(Start)

	var issues []string
	if !reached[End] {
		issues = append(issues, "end sentinel is unreachable from start")
	}
	for _, name := range cg.order {
		if !reached[name] {
			issues = append(issues, fmt.Sprintf("node %q is unreachable from start", name))
		}
	}
	return issues
}

// reachableFrom returns all nodes reachable from origin, including origin.
func (cg *CompiledGraph) reachableFrom(origin string) map[string]bool {
	reached := map[string]bool{origin: true}
	queue := []string{origin}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range cg.successors(cur) {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}
	return reached
}

// checkBranchOutputs rejects fan-outs whose parallel branches declare
// overlapping output keys. Only keys written on a branch's exclusive side
// count — a shared downstream join node is fine, since it runs after the
// barrier.
func (cg *CompiledGraph) checkBranchOutputs() []string {
	var issues []string

	for from, tos := range cg.staticOut {
		if len(tos) < 2 {
			continue
		}

		reach := make([]map[string]bool, len(tos))
		for i, to := range tos {
			reach[i] = cg.reachableFrom(to)
		}

		for i := range tos {
			for j := i + 1; j < len(tos); j++ {
				exclusiveI := exclusiveKeys(cg, reach[i], reach[j])
				exclusiveJ := exclusiveKeys(cg, reach[j], reach[i])
				for key := range exclusiveI {
					if exclusiveJ[key] {
						issues = append(issues, fmt.Sprintf(
							"parallel branches %q and %q out of %q both declare output key %q",
							tos[i], tos[j], from, key))
					}
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}

// exclusiveKeys collects the declared output keys of nodes in mine but not
// in theirs.
func exclusiveKeys(cg *CompiledGraph, mine, theirs map[string]bool) map[string]bool {
	keys := make(map[string]bool)
	for name := range mine {
		if theirs[name] {
			continue
		}
		if m, ok := cg.meta[name]; ok {
			for _, key := range m.outputs {
				keys[key] = true
			}
		}
	}
	return keys
}

// ancestors returns every node on a path from Start to name, excluding
// name itself. Back edges are ignored so loops don't make a node its own
// ancestor. Used when resuming to decide which nodes already ran.
func (cg *CompiledGraph) ancestors(name string) map[string]bool {
	// reverse adjacency over forward edges
	reverse := make(map[string][]string)
	addReverse := func(from, to string) {
		if cg.backEdges[Edge{From: from, To: to}] {
			return
		}
		reverse[to] = append(reverse[to], from)
	}
	for from, tos := range cg.staticOut {
		for _, to := range tos {
			addReverse(from, to)
		}
	}
	for from, ce := range cg.conditionals {
		for _, target := range ce.targets {
			addReverse(from, target)
		}
	}

	result := make(map[string]bool)
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, prev := range reverse[cur] {
			if !result[prev] {
				result[prev] = true
				queue = append(queue, prev)
			}
		}
	}
	return result
}
