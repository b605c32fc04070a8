package model

import (
	"context"
	"encoding/json"
	"sync"
)

// MockClient is a test implementation of Client.
//
// Responses are consumed in order across all three methods; when exhausted,
// the last one repeats. InvokeStructured decodes the response Text as JSON
// into the caller's out value. Every call is recorded in Calls.
//
// Safe for concurrent use, which matters when it backs fan-out nodes.
type MockClient struct {
	// Responses is the scripted sequence of replies.
	Responses []ChatOut

	// Err, if set, is returned by every call instead of a response.
	Err error

	// Calls records every invocation in order.
	Calls []MockCall

	mu        sync.Mutex
	callIndex int
}

// MockCall records a single Client invocation.
type MockCall struct {
	Method   string // "invoke", "structured", "tools"
	System   string
	User     string
	Messages []Message
	Tools    []ToolSpec
}

func (m *MockClient) next(call MockCall) (ChatOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, call)
	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Invoke implements Client.
func (m *MockClient) Invoke(ctx context.Context, system, user string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	out, err := m.next(MockCall{Method: "invoke", System: system, User: user})
	return out.Text, err
}

// InvokeStructured implements Client: the scripted Text is decoded as JSON.
func (m *MockClient) InvokeStructured(ctx context.Context, system, user string, schema map[string]interface{}, out interface{}) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	reply, err := m.next(MockCall{Method: "structured", System: system, User: user})
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(reply.Text), out)
}

// InvokeWithTools implements Client.
func (m *MockClient) InvokeWithTools(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}
	return m.next(MockCall{Method: "tools", Messages: messages, Tools: tools})
}

// Reset clears call history and rewinds the response sequence.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns how many times any method has been called.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
