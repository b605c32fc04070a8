package graph

import (
	"encoding/json"
	"fmt"
)

// State is the shared data a run accumulates: a flat map of globally
// namespaced keys. Nodes read the keys they need and return a delta with
// the keys they produce; the engine merges deltas by key union with
// last-writer-wins on collision.
//
// Values must be JSON-serializable so checkpoints can persist them.
// Parallel branches are expected to write disjoint keys; Compile enforces
// that for declared outputs.
type State map[string]any

// Clone returns a deep copy via JSON round-trip, so a node mutating a
// nested value in its snapshot can't race with another node's.
func (s State) Clone() (State, error) {
	if s == nil {
		return State{}, nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	copied := make(State, len(s))
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return copied, nil
}

// merge applies delta to s in place: every key in delta is written into s,
// overwriting existing keys. A nil delta is a no-op.
func (s State) merge(delta State) {
	for k, v := range delta {
		s[k] = v
	}
}

// GetString returns the string at key, or "" when absent or another type.
func (s State) GetString(key string) string {
	v, _ := s[key].(string)
	return v
}

// GetInt returns the integer at key. JSON round-trips store numbers as
// float64, so both representations are accepted.
func (s State) GetInt(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// GetFloat returns the float at key, or 0 when absent or another type.
func (s State) GetFloat(key string) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// GetBool returns the bool at key, or false when absent or another type.
func (s State) GetBool(key string) bool {
	v, _ := s[key].(bool)
	return v
}
