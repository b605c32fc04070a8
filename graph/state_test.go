package graph

import "testing"

func TestStateCloneIndependence(t *testing.T) {
	original := State{
		"title":  "intro",
		"scenes": []any{map[string]any{"index": 1}},
	}

	copied, err := original.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	copied["title"] = "changed"
	copied["scenes"].([]any)[0].(map[string]any)["index"] = 99

	if original["title"] != "intro" {
		t.Error("top-level mutation leaked into original")
	}
	if original["scenes"].([]any)[0].(map[string]any)["index"] != 1 {
		t.Error("nested mutation leaked into original")
	}
}

func TestStateCloneNil(t *testing.T) {
	var s State
	copied, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone of nil state failed: %v", err)
	}
	if copied == nil {
		t.Fatal("expected non-nil clone")
	}
	copied["k"] = "v"
}

func TestStateMergeLastWriterWins(t *testing.T) {
	s := State{"a": 1, "b": "old"}
	s.merge(State{"b": "new", "c": true})

	if s["a"] != 1 {
		t.Errorf("untouched key changed: %v", s["a"])
	}
	if s["b"] != "new" {
		t.Errorf("collision not overwritten: %v", s["b"])
	}
	if s["c"] != true {
		t.Errorf("new key missing: %v", s["c"])
	}

	s.merge(nil)
	if len(s) != 3 {
		t.Errorf("nil merge changed state: %v", s)
	}
}

func TestStateGetters(t *testing.T) {
	s := State{
		"str":     "hello",
		"int":     3,
		"jsonNum": float64(7), // numbers come back as float64 after a checkpoint roundtrip
		"flag":    true,
	}

	if got := s.GetString("str"); got != "hello" {
		t.Errorf("GetString = %q", got)
	}
	if got := s.GetString("missing"); got != "" {
		t.Errorf("GetString(missing) = %q", got)
	}
	if got := s.GetInt("int"); got != 3 {
		t.Errorf("GetInt = %d", got)
	}
	if got := s.GetInt("jsonNum"); got != 7 {
		t.Errorf("GetInt(float64) = %d", got)
	}
	if got := s.GetFloat("jsonNum"); got != 7 {
		t.Errorf("GetFloat = %v", got)
	}
	if got := s.GetFloat("int"); got != 3 {
		t.Errorf("GetFloat(int) = %v", got)
	}
	if !s.GetBool("flag") {
		t.Error("GetBool = false")
	}
	if s.GetBool("str") {
		t.Error("GetBool of non-bool should be false")
	}
}
