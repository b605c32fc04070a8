// Package emit provides pluggable observability for workflow runs.
//
// The engine emits an Event at every significant moment of a run: node
// start and finish, routing decisions, checkpoint saves, run completion
// and failure. Emitters decide what to do with them — log them, buffer
// them for inspection, or bridge them to OpenTelemetry spans.
package emit

// Event is a single observability record from a workflow run.
type Event struct {
	// RunID identifies the run that produced this event.
	RunID string

	// Step is the number of nodes completed when the event was emitted.
	// Zero for run-level events before any node finished.
	Step int

	// NodeID names the node this event concerns. Empty for run-level
	// events (run_start, run_complete, run_failed).
	NodeID string

	// Msg is the event kind, e.g. "node_start", "node_complete",
	// "route", "checkpoint_saved", "run_failed".
	Msg string

	// Meta holds event-specific structured data. Common keys:
	// "duration_ms", "error", "route", "loop_count", "status".
	Meta map[string]interface{}
}
