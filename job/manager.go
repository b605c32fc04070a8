package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/emit"
	"github.com/docreel/docreel-go/graph/store"
	"github.com/docreel/docreel-go/pipeline"
)

// Runner executes one pipeline run. *graph.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, runID string, initial graph.State) (graph.State, error)
	Resume(ctx context.Context, runID string) (graph.State, error)
}

// Manager owns the job lifecycle: it accepts submissions, runs them
// asynchronously, records outcomes, and sweeps up jobs a previous
// process left running.
type Manager struct {
	store  Store
	runner Runner
	active sync.WaitGroup
}

// NewManager creates a manager over the given store and runner.
func NewManager(store Store, runner Runner) *Manager {
	return &Manager{store: store, runner: runner}
}

// Submit records a new pending job and starts it in the background. The
// returned job carries the generated ID; poll Get for progress.
func (m *Manager) Submit(ctx context.Context, input, language string) (Job, error) {
	if strings.TrimSpace(input) == "" {
		return Job{}, fmt.Errorf("job input is empty")
	}

	j := Job{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Input:     input,
		Language:  language,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Save(ctx, j); err != nil {
		return Job{}, fmt.Errorf("failed to record job: %w", err)
	}

	m.start(j, false)
	return j, nil
}

// Get returns the current record for id.
func (m *Manager) Get(ctx context.Context, id string) (Job, error) {
	return m.store.Load(ctx, id)
}

// List returns all jobs, most recently created first.
func (m *Manager) List(ctx context.Context) ([]Job, error) {
	return m.store.List(ctx)
}

// Resume restarts an interrupted job from its last checkpoint.
func (m *Manager) Resume(ctx context.Context, id string) (Job, error) {
	j, err := m.store.Load(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if j.Status != StatusInterrupted {
		return Job{}, fmt.Errorf("job %s is %s, only interrupted jobs resume", id, j.Status)
	}

	m.start(j, true)
	return j, nil
}

// RecoverInterrupted marks jobs left running by a dead process as
// interrupted so they can be resumed. Only running jobs are swept: a
// running record with no live process is provably orphaned, while a
// pending one may simply not have started. Call once at startup, before
// accepting new work.
func (m *Manager) RecoverInterrupted(ctx context.Context) (int, error) {
	jobs, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}

	var swept int
	for _, j := range jobs {
		if j.Status != StatusRunning {
			continue
		}
		j.Status = StatusInterrupted
		if err := m.store.Save(ctx, j); err != nil {
			return swept, fmt.Errorf("failed to sweep job %s: %w", j.ID, err)
		}
		swept++
	}
	return swept, nil
}

// Wait blocks until every in-flight job finishes. For tests and
// graceful shutdown.
func (m *Manager) Wait() { m.active.Wait() }

func (m *Manager) start(j Job, resume bool) {
	m.active.Add(1)
	go func() {
		defer m.active.Done()
		m.execute(j, resume)
	}()
}

// execute drives one run to a terminal status. It uses a background
// context: jobs outlive the HTTP request that submitted them.
func (m *Manager) execute(j Job, resume bool) {
	ctx := context.Background()

	now := time.Now().UTC()
	j.Status = StatusRunning
	j.StartedAt = &now
	if err := m.store.Save(ctx, j); err != nil {
		return
	}

	initial := graph.State{
		pipeline.KeyRawText:  j.Input,
		pipeline.KeyLanguage: j.Language,
	}

	var final graph.State
	var err error
	if resume {
		final, err = m.runner.Resume(ctx, j.ID)
		// a job interrupted before its first checkpoint has nothing to
		// resume from; start it over
		if errors.Is(err, store.ErrNotFound) {
			final, err = m.runner.Run(ctx, j.ID, initial)
		}
	} else {
		final, err = m.runner.Run(ctx, j.ID, initial)
	}

	done := time.Now().UTC()
	j.FinishedAt = &done
	if err != nil {
		j.Status = StatusFailed
		j.Error = err.Error()
	} else {
		j.Status = StatusCompleted
		if meta, ok := final[pipeline.KeyExportMetadata]; ok {
			if encoded, mErr := json.Marshal(meta); mErr == nil {
				j.Output = string(encoded)
			}
		}
	}
	_ = m.store.Save(ctx, j)
}

// ProgressEmitter bridges run events back onto job records: each
// node_complete on a job's top-level run updates the job's Progress.
// Wrap it into the emitter stack handed to the pipeline.
type ProgressEmitter struct {
	store Store
}

// NewProgressEmitter creates a progress bridge over store.
func NewProgressEmitter(store Store) *ProgressEmitter {
	return &ProgressEmitter{store: store}
}

// Emit implements emit.Emitter.
func (p *ProgressEmitter) Emit(event emit.Event) {
	if event.Msg != "node_complete" || event.NodeID == "" {
		return
	}
	// sub-graph runs carry derived IDs like "<job>/ingestion"; only the
	// top-level run maps to a job record
	if strings.Contains(event.RunID, "/") {
		return
	}

	ctx := context.Background()
	j, err := p.store.Load(ctx, event.RunID)
	if err != nil {
		return
	}
	j.Progress = event.NodeID
	_ = p.store.Save(ctx, j)
}
