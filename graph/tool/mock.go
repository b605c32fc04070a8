package tool

import (
	"context"
	"sync"
)

// MockTool is a scripted Tool for tests: responses are consumed in order
// (the last one repeats), Err short-circuits every call, and all calls are
// recorded. Safe for concurrent use.
type MockTool struct {
	ToolName string
	Desc     string

	// InputSchema is returned by Schema; may be nil.
	InputSchema map[string]interface{}

	// Responses is the scripted output sequence.
	Responses []map[string]interface{}

	// Err, if set, is returned instead of a response.
	Err error

	// Calls records every invocation's input.
	Calls []MockToolCall

	mu        sync.Mutex
	callIndex int
}

// MockToolCall records a single Call invocation.
type MockToolCall struct {
	Input map[string]interface{}
}

// Name implements Tool.
func (m *MockTool) Name() string { return m.ToolName }

// Description implements Tool.
func (m *MockTool) Description() string { return m.Desc }

// Schema implements Tool.
func (m *MockTool) Schema() map[string]interface{} { return m.InputSchema }

// Call implements Tool.
func (m *MockTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockToolCall{Input: input})
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return map[string]interface{}{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears call history and rewinds the response sequence.
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns how many times Call has run.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
