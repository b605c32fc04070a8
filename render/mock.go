package render

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a deterministic Client for tests and mock pipeline runs:
// every submission succeeds with a synthetic artifact path derived from
// the composition name, unless Err is set.
type MockClient struct {
	// Err, if set, fails every submission.
	Err error

	// FailCompositions fails only the named compositions.
	FailCompositions map[string]error

	mu    sync.Mutex
	calls []Request
}

// Submit implements Client.
func (m *MockClient) Submit(ctx context.Context, req Request) (ArtifactRef, error) {
	if ctx.Err() != nil {
		return ArtifactRef{}, ctx.Err()
	}

	m.mu.Lock()
	m.calls = append(m.calls, req)
	n := len(m.calls)
	m.mu.Unlock()

	if m.Err != nil {
		return ArtifactRef{}, m.Err
	}
	if err, ok := m.FailCompositions[req.Composition]; ok {
		return ArtifactRef{}, err
	}

	return ArtifactRef{
		ID:   fmt.Sprintf("mock-%d", n),
		Path: fmt.Sprintf("/artifacts/%s.mp4", req.Composition),
	}, nil
}

// Calls returns a copy of the recorded submissions.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request{}, m.calls...)
}
