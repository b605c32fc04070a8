// Package job tracks document-to-video jobs: submission, asynchronous
// execution, and recovery of jobs orphaned by a crashed process.
package job

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested job ID does not exist.
var ErrNotFound = errors.New("job not found")

// Status is a job's lifecycle state. It mirrors run statuses one level
// up: a job is the user-facing wrapper around one pipeline run.
type Status string

const (
	StatusPending     Status = "pending"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusInterrupted
}

// Job is one submitted document with its processing state. The job ID
// doubles as the pipeline run ID, so a job's checkpoints are always
// findable from its record.
type Job struct {
	ID     string `json:"id"`
	Status Status `json:"status"`

	// Progress is the most recent pipeline stage reported for the job.
	Progress string `json:"progress,omitempty"`

	// Input is the raw document text to turn into a video.
	Input string `json:"input"`

	// Language is the requested output language ("" means English).
	Language string `json:"language,omitempty"`

	// Output is the delivered export metadata as JSON, set on completion.
	Output string `json:"output,omitempty"`

	// Error holds the failure message for failed jobs.
	Error string `json:"error,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store persists job records.
//
// Saves for the same job ID overwrite. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save writes or overwrites the record for j.ID.
	Save(ctx context.Context, j Job) error

	// Load returns the record for id, or ErrNotFound.
	Load(ctx context.Context, id string) (Job, error)

	// List returns all jobs, most recently created first.
	List(ctx context.Context) ([]Job, error)
}
