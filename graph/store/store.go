// Package store provides checkpoint persistence for workflow runs.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run ID has no checkpoint.
var ErrNotFound = errors.New("checkpoint not found")

// Status is the externally visible lifecycle state of a run.
//
// A run moves pending -> running and terminates in exactly one of
// completed, failed, or interrupted. Interrupted runs were cancelled or
// lost their process; they remain resumable.
type Status string

const (
	StatusPending     Status = "pending"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Terminal reports whether the status is one of the three end states.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusInterrupted
}

// Checkpoint is a durable snapshot of a run: the accumulated state plus the
// execution cursor (the last node that completed). Saving one after every
// node completion is what lets a multi-minute run resume after a crash
// instead of replaying from the start.
//
// Type parameter S is the state type to persist; it must be
// JSON-serializable.
type Checkpoint[S any] struct {
	// RunID uniquely identifies the run this checkpoint belongs to.
	RunID string `json:"run_id"`

	// State is the accumulated state after LastNode completed.
	State S `json:"state"`

	// LastNode is the name of the last node that completed successfully.
	// Empty before any node has completed.
	LastNode string `json:"last_node"`

	// Status is the run's lifecycle state at save time.
	Status Status `json:"status"`

	// UpdatedAt records when this checkpoint was written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists one checkpoint per run ID.
//
// Saves for the same run ID overwrite; only the latest snapshot is kept.
// Implementations serialize per run ID — concurrent runs with distinct IDs
// never contend.
//
// Implementations in this package:
//   - MemStore: testing and single-process use
//   - SQLiteStore: single-file local persistence
//   - MySQLStore: shared database server
//   - RedisStore: shared key-value server with optional TTL
//
// Type parameter S is the state type to persist.
type Store[S any] interface {
	// Save writes or overwrites the checkpoint for cp.RunID.
	Save(ctx context.Context, cp Checkpoint[S]) error

	// Load returns the latest checkpoint for runID.
	// Returns ErrNotFound if the run has never been checkpointed.
	Load(ctx context.Context, runID string) (Checkpoint[S], error)

	// Delete removes the checkpoint for runID.
	// Deleting an absent run ID is not an error.
	Delete(ctx context.Context, runID string) error

	// List returns the run IDs that have a stored checkpoint.
	List(ctx context.Context) ([]string, error)
}
