// Package graph provides a directed workflow graph and its execution engine.
package graph

import (
	"fmt"
	"strings"
)

// GraphValidationError reports structural problems found by Compile.
// All issues are collected in one pass so a broken graph surfaces every
// defect at once.
type GraphValidationError struct {
	// Graph is the name of the graph that failed validation.
	Graph string

	// Issues lists each structural problem found.
	Issues []string
}

// Error implements the error interface.
func (e *GraphValidationError) Error() string {
	return fmt.Sprintf("graph %q is invalid: %s", e.Graph, strings.Join(e.Issues, "; "))
}

// UnroutableStateError indicates a router returned a label with no declared
// target. This is a wiring bug, not a recoverable condition: the run halts.
type UnroutableStateError struct {
	// Node is the conditional edge's source node.
	Node string

	// Label is the undeclared label the router returned.
	Label string
}

// Error implements the error interface.
func (e *UnroutableStateError) Error() string {
	return fmt.Sprintf("node %q routed to undeclared label %q", e.Node, e.Label)
}

// RecursionLimitError indicates a loop exceeded its declared iteration
// budget. The limit counts traversals of the loop's back edge within a
// single run.
type RecursionLimitError struct {
	// From and To identify the back edge that exceeded the budget.
	From string
	To   string

	// Limit is the declared recursion limit.
	Limit int
}

// Error implements the error interface.
func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("loop %s -> %s exceeded recursion limit %d", e.From, e.To, e.Limit)
}

// NodeExecutionError wraps an error returned by a node, identifying which
// node failed after how many attempts.
type NodeExecutionError struct {
	// Node is the name of the failing node.
	Node string

	// Attempts is how many times the node was tried, including retries.
	Attempts int

	// Cause is the error from the final attempt.
	Cause error
}

// Error implements the error interface.
func (e *NodeExecutionError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("node %q failed after %d attempts: %v", e.Node, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *NodeExecutionError) Unwrap() error {
	return e.Cause
}

// PipelineError is the terminal error of a failed run: which run, which
// node, and why. The checkpoint saved alongside it carries the state as of
// the last successful node, so the run stays resumable.
type PipelineError struct {
	// RunID identifies the failed run.
	RunID string

	// Node is the node whose failure ended the run, when known.
	Node string

	// Cause is the underlying failure.
	Cause error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("run %q failed at node %q: %v", e.RunID, e.Node, e.Cause)
	}
	return fmt.Sprintf("run %q failed: %v", e.RunID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}
