package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/docreel/docreel-go/graph/emit"
)

// nodeTimeout resolves the timeout for a node: the per-node WithTimeout
// override wins, then the engine default, then 0 (unbounded).
func (e *Engine) nodeTimeout(node string) time.Duration {
	if m, ok := e.graph.meta[node]; ok && m.timeout > 0 {
		return m.timeout
	}
	return e.cfg.defaultNodeTimeout
}

// executeNode runs one node in a worker goroutine, applying its timeout
// and retry policy, and reports the outcome to the coordinator. Errors are
// wrapped in *NodeExecutionError.
func (e *Engine) executeNode(ctx context.Context, runID, node string, snapshot State, results chan<- nodeResult) {
	start := time.Now()
	delta, attempts, err := e.runAttempts(ctx, runID, node, snapshot)
	took := time.Since(start)

	if err != nil {
		results <- nodeResult{
			node: node,
			err:  &NodeExecutionError{Node: node, Attempts: attempts, Cause: err},
			took: took,
		}
		return
	}
	results <- nodeResult{node: node, delta: delta, took: took}
}

// runAttempts executes the node until it succeeds, its retry policy is
// exhausted, or the context dies. Each attempt gets a fresh copy of the
// snapshot so a failed attempt can't leak partial mutations into the next.
func (e *Engine) runAttempts(ctx context.Context, runID, node string, snapshot State) (State, int, error) {
	impl := e.graph.nodes[node]
	timeout := e.nodeTimeout(node)

	var retry *RetryPolicy
	if m, ok := e.graph.meta[node]; ok {
		retry = m.retry
	}
	maxAttempts := 1
	if retry != nil && retry.MaxAttempts > 1 {
		maxAttempts = retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		input := snapshot
		if attempt > 1 {
			var err error
			if input, err = snapshot.Clone(); err != nil {
				return nil, attempt, err
			}
		}

		delta, err := e.runOnce(ctx, impl, node, input, timeout)
		if err == nil {
			return delta, attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}
		if retry == nil || !retry.shouldRetry(err, attempt) {
			return nil, attempt, err
		}

		e.cfg.metrics.incRetry(e.graph.name, node)
		e.emitter.Emit(emit.Event{
			RunID: runID, NodeID: node, Msg: "node_retry",
			Meta: map[string]interface{}{"attempt": attempt, "error": err.Error()},
		})

		select {
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		case <-time.After(computeBackoff(attempt-1, retry.BaseDelay, retry.MaxDelay)):
		}
	}
	return nil, maxAttempts, lastErr
}

// runOnce executes a single attempt under the node's timeout.
func (e *Engine) runOnce(ctx context.Context, impl Node, node string, input State, timeout time.Duration) (State, error) {
	if timeout <= 0 {
		return impl.Run(ctx, input)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delta, err := impl.Run(attemptCtx, input)
	if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		// deliberately not wrapping DeadlineExceeded: a node timeout is a
		// node failure, not a run interruption
		return nil, fmt.Errorf("node %q exceeded timeout of %v", node, timeout)
	}
	return delta, err
}
