package speech

import (
	"context"
	"sync"

	"github.com/docreel/docreel-go/timing"
)

// MockSynthesizer is a deterministic Synthesizer for tests and mock
// pipeline runs: it emits a fixed-duration character alignment for the
// input text instead of real audio.
type MockSynthesizer struct {
	// CharDuration is the spoken length per character in seconds.
	// Zero means 0.05s.
	CharDuration float64

	// Err, if set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls []MockSynthesisCall
}

// MockSynthesisCall records one Synthesize invocation.
type MockSynthesisCall struct {
	VoiceID  string
	Text     string
	Language string
}

// Synthesize implements Synthesizer. The audio payload is the text bytes,
// which keeps artifact plumbing testable without real audio.
func (m *MockSynthesizer) Synthesize(ctx context.Context, voiceID, text, language string) (Result, error) {
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockSynthesisCall{VoiceID: voiceID, Text: text, Language: language})
	m.mu.Unlock()

	if m.Err != nil {
		return Result{}, m.Err
	}

	per := m.CharDuration
	if per <= 0 {
		per = 0.05
	}

	chars := make([]timing.CharTiming, 0, len(text))
	for i, r := range []rune(text) {
		chars = append(chars, timing.CharTiming{
			Character: string(r),
			Start:     float64(i) * per,
			End:       float64(i+1) * per,
		})
	}
	return Result{Audio: []byte(text), Timings: chars}, nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockSynthesizer) Calls() []MockSynthesisCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockSynthesisCall{}, m.calls...)
}

// MockDesigner is a scripted Designer for tests.
type MockDesigner struct {
	// VoiceID is returned by every successful call.
	VoiceID string

	// Err, if set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls []MockDesignCall
}

// MockDesignCall records one DesignVoice invocation.
type MockDesignCall struct {
	Name        string
	Description string
}

// DesignVoice implements Designer.
func (m *MockDesigner) DesignVoice(ctx context.Context, name, description string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockDesignCall{Name: name, Description: description})
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	return m.VoiceID, nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockDesigner) Calls() []MockDesignCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockDesignCall{}, m.calls...)
}
