package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/docreel/docreel-go/graph/model"
)

func TestRegistrySpecs(t *testing.T) {
	search := &MockTool{
		ToolName:    "web_search",
		Desc:        "Search the web",
		InputSchema: map[string]interface{}{"type": "object"},
	}
	fetch := &MockTool{ToolName: "http_fetch", Desc: "Fetch a URL"}

	r := NewRegistry(search, fetch)
	specs := r.Specs()
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}
	if specs[0].Name != "web_search" || specs[1].Name != "http_fetch" {
		t.Errorf("registration order lost: %v", specs)
	}
	if specs[0].Description != "Search the web" || specs[0].Schema == nil {
		t.Errorf("spec[0] = %+v", specs[0])
	}
}

func TestRegistryDispatch(t *testing.T) {
	search := &MockTool{
		ToolName:  "web_search",
		Responses: []map[string]interface{}{{"results": []string{"a", "b"}}},
	}
	r := NewRegistry(search)

	out, err := r.Dispatch(context.Background(), model.ToolCall{
		Name:  "web_search",
		Input: map[string]interface{}{"query": "memes"},
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if _, ok := out["results"]; !ok {
		t.Errorf("out = %v", out)
	}
	if search.CallCount() != 1 {
		t.Errorf("tool called %d times", search.CallCount())
	}
	if search.Calls[0].Input["query"] != "memes" {
		t.Errorf("input = %v", search.Calls[0].Input)
	}
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Dispatch(context.Background(), model.ToolCall{Name: "nope"})
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestRegistryDispatchToolErrorBecomesData(t *testing.T) {
	broken := &MockTool{ToolName: "flaky", Err: errors.New("upstream down")}
	r := NewRegistry(broken)

	out, err := r.Dispatch(context.Background(), model.ToolCall{Name: "flaky"})
	if err != nil {
		t.Fatalf("tool errors should come back as data, got %v", err)
	}
	if out["error"] != "upstream down" {
		t.Errorf("out = %v", out)
	}
}

func TestRegistryAddOverwrites(t *testing.T) {
	r := NewRegistry(&MockTool{ToolName: "t", Desc: "old"})
	r.Add(&MockTool{ToolName: "t", Desc: "new"})

	if got := r.Get("t").Description(); got != "new" {
		t.Errorf("description = %q", got)
	}
	if len(r.Specs()) != 1 {
		t.Errorf("specs = %v", r.Specs())
	}
}
