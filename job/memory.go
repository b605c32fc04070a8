package job

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Store.
//
// Designed for testing and development; records are lost when the
// process exits. Safe for concurrent use.
type MemStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{jobs: make(map[string]Job)}
}

// Save writes or overwrites the record for j.ID.
func (m *MemStore) Save(_ context.Context, j Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[j.ID] = j
	return nil
}

// Load returns the record for id, or ErrNotFound.
func (m *MemStore) Load(_ context.Context, id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return j, nil
}

// List returns all jobs, most recently created first.
func (m *MemStore) List(_ context.Context) ([]Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	return jobs, nil
}
