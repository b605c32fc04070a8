package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docreel/docreel-go/graph/emit"
	"github.com/docreel/docreel-go/graph/store"
)

// ErrMaxSteps indicates a run exceeded the engine's step budget. This is a
// coarse guard on top of the recursion limit, catching runaway graphs the
// loop accounting can't see.
var ErrMaxSteps = errors.New("run exceeded maximum step count")

type runIDContextKey struct{}

// RunIDFromContext returns the run ID the engine placed in ctx for the
// duration of a run, or "" outside one. Sub-graph nodes use it to derive
// child run IDs.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDContextKey{}).(string)
	return id
}

// Engine executes a compiled graph: it dispatches ready nodes to workers,
// merges their deltas, resolves routing, and checkpoints after every node
// completion so a run can resume after a crash.
//
// An Engine is safe for concurrent use; all per-run bookkeeping lives on
// the stack of Run.
type Engine struct {
	graph   *CompiledGraph
	store   store.Store[State]
	emitter emit.Emitter
	cfg     engineConfig
}

// NewEngine creates an engine for the compiled graph. A nil store falls
// back to an in-memory store; a nil emitter discards events.
func NewEngine(g *CompiledGraph, st store.Store[State], emitter emit.Emitter, opts ...Option) *Engine {
	cfg := engineConfig{maxConcurrent: 4}
	for _, opt := range opts {
		opt(&cfg)
	}
	if st == nil {
		st = store.NewMemStore[State]()
	}
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	return &Engine{graph: g, store: st, emitter: emitter, cfg: cfg}
}

// Graph returns the compiled graph this engine executes.
func (e *Engine) Graph() *CompiledGraph { return e.graph }

// Update is one element of a Stream: the state snapshot after NodeID
// completed. The terminal element carries either NodeID == End with the
// final state, or Err when the run failed.
type Update struct {
	NodeID string
	State  State
	Err    error
}

// Run executes the graph to completion. An empty runID gets a generated
// UUID. The returned State is the final accumulated state; on failure the
// error is a *PipelineError and the state reflects the last successful
// merge.
func (e *Engine) Run(ctx context.Context, runID string, initial State) (State, error) {
	return e.run(ctx, runID, initial, nil, nil)
}

// Stream executes the graph like Run but yields a state snapshot after
// every node completion. The channel closes after the terminal element.
func (e *Engine) Stream(ctx context.Context, runID string, initial State) <-chan Update {
	ch := make(chan Update, 16)
	go func() {
		defer close(ch)
		final, err := e.run(ctx, runID, initial, nil, ch)
		if err != nil {
			ch <- Update{Err: err}
			return
		}
		ch <- Update{NodeID: End, State: final}
	}()
	return ch
}

// Resume continues an interrupted or failed run from its checkpoint.
// Nodes upstream of the last completed node are treated as done;
// everything downstream runs again. A completed run returns its final
// state as-is.
func (e *Engine) Resume(ctx context.Context, runID string) (State, error) {
	cp, err := e.store.Load(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for run %q: %w", runID, err)
	}
	if cp.Status == store.StatusCompleted {
		return cp.State, nil
	}

	completed := make(map[string]bool)
	if cp.LastNode != "" {
		completed = e.graph.ancestors(cp.LastNode)
		completed[cp.LastNode] = true
	}
	return e.run(ctx, runID, cp.State, completed, nil)
}

// nodeResult is what a worker goroutine reports back to the coordinator.
type nodeResult struct {
	node  string
	delta State
	err   error
	took  time.Duration
}

// runState is the coordinator's bookkeeping for one run.
type runState struct {
	runID      string
	state      State
	fired      map[string]int  // node -> static in-edges fired this wave
	condFired  map[string]bool // node -> conditional in-edge fired
	ready      []string
	loopCount  int
	steps      int
	endReached bool
	lastNode   string
	failure    error
	failedNode string
}

func (rs *runState) fail(node string, err error) {
	if rs.failure == nil {
		rs.failure = err
		rs.failedNode = node
	}
}

// run is the shared core behind Run, Stream, and Resume. completed is
// non-nil when resuming and lists nodes to treat as already executed;
// updates is non-nil when streaming.
func (e *Engine) run(ctx context.Context, runID string, initial State, completed map[string]bool, updates chan<- Update) (State, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	if e.cfg.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.runTimeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, runIDContextKey{}, runID)

	state, err := initial.Clone()
	if err != nil {
		return nil, &PipelineError{RunID: runID, Cause: err}
	}

	rs := &runState{
		runID:     runID,
		state:     state,
		fired:     make(map[string]int),
		condFired: make(map[string]bool),
	}

	e.emitter.Emit(emit.Event{RunID: runID, Msg: "run_start", Meta: map[string]interface{}{"graph": e.graph.name}})
	if err := e.checkpoint(ctx, rs, store.StatusRunning); err != nil {
		return rs.state, &PipelineError{RunID: runID, Cause: err}
	}

	if completed == nil {
		if err := e.fireOutputs(rs, Start, nil); err != nil {
			rs.fail(Start, err)
		}
	} else {
		rs.lastNode = e.lastCompleted(completed)
		if err := e.seedFromCompleted(rs, completed); err != nil {
			rs.fail(rs.lastNode, err)
		}
	}

	results := make(chan nodeResult)
	inflight := 0

	for {
		for len(rs.ready) > 0 && inflight < e.cfg.maxConcurrent && rs.failure == nil {
			node := rs.ready[0]
			rs.ready = rs.ready[1:]

			snapshot, err := rs.state.Clone()
			if err != nil {
				rs.fail(node, err)
				break
			}

			inflight++
			e.cfg.metrics.setInflight(inflight)
			e.cfg.metrics.setQueueDepth(len(rs.ready))
			e.emitter.Emit(emit.Event{RunID: runID, Step: rs.steps, NodeID: node, Msg: "node_start"})

			go e.executeNode(ctx, runID, node, snapshot, results)
		}

		if inflight == 0 {
			break
		}

		r := <-results
		inflight--
		e.cfg.metrics.setInflight(inflight)

		if r.err != nil {
			e.cfg.metrics.incFailure(e.graph.name, r.node)
			e.cfg.metrics.observeLatency(e.graph.name, r.node, r.took, "error")
			e.emitter.Emit(emit.Event{
				RunID: runID, Step: rs.steps, NodeID: r.node, Msg: "node_failed",
				Meta: map[string]interface{}{"error": r.err.Error()},
			})
			rs.fail(r.node, r.err)
			continue
		}
		if rs.failure != nil {
			// draining after a failure; late results are discarded
			continue
		}

		e.cfg.metrics.observeLatency(e.graph.name, r.node, r.took, "success")
		rs.state.merge(r.delta)
		rs.steps++
		rs.lastNode = r.node
		e.emitter.Emit(emit.Event{
			RunID: runID, Step: rs.steps, NodeID: r.node, Msg: "node_complete",
			Meta: map[string]interface{}{"duration_ms": r.took.Milliseconds()},
		})

		if err := e.checkpoint(ctx, rs, store.StatusRunning); err != nil {
			rs.fail(r.node, err)
			continue
		}
		if updates != nil {
			if snapshot, err := rs.state.Clone(); err == nil {
				updates <- Update{NodeID: r.node, State: snapshot}
			}
		}

		if e.cfg.maxSteps > 0 && rs.steps >= e.cfg.maxSteps && !rs.endReached {
			rs.fail(r.node, ErrMaxSteps)
			continue
		}
		if err := ctx.Err(); err != nil {
			rs.fail(r.node, err)
			continue
		}
		if err := e.fireOutputs(rs, r.node, rs.state); err != nil {
			rs.fail(r.node, err)
			continue
		}
	}

	if rs.failure != nil {
		status := store.StatusFailed
		if errors.Is(rs.failure, context.Canceled) || errors.Is(rs.failure, context.DeadlineExceeded) {
			status = store.StatusInterrupted
		}
		_ = e.checkpoint(ctx, rs, status)
		e.emitter.Emit(emit.Event{
			RunID: runID, Step: rs.steps, NodeID: rs.failedNode, Msg: "run_failed",
			Meta: map[string]interface{}{"error": rs.failure.Error(), "status": string(status)},
		})
		return rs.state, &PipelineError{RunID: runID, Node: rs.failedNode, Cause: rs.failure}
	}

	if !rs.endReached {
		err := errors.New("run stalled before reaching the end sentinel")
		_ = e.checkpoint(ctx, rs, store.StatusFailed)
		return rs.state, &PipelineError{RunID: runID, Node: rs.lastNode, Cause: err}
	}

	if err := e.checkpoint(ctx, rs, store.StatusCompleted); err != nil {
		return rs.state, &PipelineError{RunID: runID, Cause: err}
	}
	e.emitter.Emit(emit.Event{RunID: runID, Step: rs.steps, Msg: "run_complete"})
	return rs.state, nil
}

// fireOutputs fires every edge out of from: static edges feed join
// barriers, back edges count against the recursion limit, and the
// conditional edge, if any, is routed against merged state (nil only for
// Start, which carries no conditional).
func (e *Engine) fireOutputs(rs *runState, from string, merged State) error {
	for _, to := range e.graph.staticOut[from] {
		if err := e.fireEdge(rs, from, to, false); err != nil {
			return err
		}
	}

	ce, ok := e.graph.conditionals[from]
	if !ok {
		return nil
	}

	snapshot, err := merged.Clone()
	if err != nil {
		return err
	}
	label := ce.router(snapshot)
	target, ok := ce.targets[label]
	if !ok {
		return &UnroutableStateError{Node: from, Label: label}
	}
	e.emitter.Emit(emit.Event{
		RunID: rs.runID, Step: rs.steps, NodeID: from, Msg: "route",
		Meta: map[string]interface{}{"route": label, "target": target},
	})
	return e.fireEdge(rs, from, target, true)
}

// fireEdge fires one edge from -> to and enqueues to once its join
// barrier is satisfied.
func (e *Engine) fireEdge(rs *runState, from, to string, conditional bool) error {
	if e.graph.backEdges[Edge{From: from, To: to}] {
		rs.loopCount++
		e.cfg.metrics.incLoop(e.graph.name)
		if rs.loopCount > e.graph.recursionLimit {
			return &RecursionLimitError{From: from, To: to, Limit: e.graph.recursionLimit}
		}
		rs.ready = append(rs.ready, to)
		return nil
	}

	if to == End {
		rs.endReached = true
		return nil
	}

	if conditional {
		rs.condFired[to] = true
	} else {
		rs.fired[to]++
	}

	if rs.fired[to] >= e.graph.expected[to] && (!e.graph.hasCondIn[to] || rs.condFired[to]) {
		rs.fired[to] = 0
		rs.condFired[to] = false
		rs.ready = append(rs.ready, to)
	}
	return nil
}

// seedFromCompleted replays the edge firings of already-completed nodes so
// a resumed run starts exactly downstream of the checkpoint. Back edges
/// are skipped: a loop interrupted mid-flight restarts its iteration
// budget. A router that routes the restored state to an undeclared label
// is surfaced as an *UnroutableStateError, same as during a live run.
func (e *Engine) seedFromCompleted(rs *runState, completed map[string]bool) error {
	done := func(name string) bool { return name == Start || completed[name] }

	fire := func(from, to string, conditional bool) {
		if e.graph.backEdges[Edge{From: from, To: to}] || to == End || done(to) {
			return
		}
		if conditional {
			rs.condFired[to] = true
		} else {
			rs.fired[to]++
		}
		if rs.fired[to] >= e.graph.expected[to] && (!e.graph.hasCondIn[to] || rs.condFired[to]) {
			rs.fired[to] = 0
			rs.condFired[to] = false
			rs.ready = append(rs.ready, to)
		}
	}

	names := append([]string{Start}, e.graph.order...)
	for _, from := range names {
		if !done(from) {
			continue
		}
		for _, to := range e.graph.staticOut[from] {
			fire(from, to, false)
		}
		if ce, ok := e.graph.conditionals[from]; ok {
			label := ce.router(rs.state)
			target, ok := ce.targets[label]
			if !ok {
				return &UnroutableStateError{Node: from, Label: label}
			}
			fire(from, target, true)
		}
	}
	return nil
}

// lastCompleted picks the checkpoint cursor out of the completed set: a
// node none of whose successors completed. Empty set yields "".
func (e *Engine) lastCompleted(completed map[string]bool) string {
	for name := range completed {
		isLast := true
		for _, next := range e.graph.successors(name) {
			if completed[next] {
				isLast = false
				break
			}
		}
		if isLast {
			return name
		}
	}
	return ""
}

// checkpoint persists the current cursor. Saves use a non-cancelable
// context so an interrupted run still records its final status.
func (e *Engine) checkpoint(ctx context.Context, rs *runState, status store.Status) error {
	snapshot, err := rs.state.Clone()
	if err != nil {
		return fmt.Errorf("failed to snapshot state for checkpoint: %w", err)
	}
	cp := store.Checkpoint[State]{
		RunID:     rs.runID,
		State:     snapshot,
		LastNode:  rs.lastNode,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	if err := e.store.Save(context.WithoutCancel(ctx), cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	e.cfg.metrics.incCheckpoint(e.graph.name)
	return nil
}
