package emit

import (
	"fmt"
	"sync"
	"testing"
)

func TestBufferedEmitterHistoryOrder(t *testing.T) {
	emitter := NewBufferedEmitter()

	for i := 0; i < 5; i++ {
		emitter.Emit(Event{RunID: "run-1", Step: i, Msg: "node_complete"})
	}

	history := emitter.GetHistory("run-1")
	if len(history) != 5 {
		t.Fatalf("expected 5 events, got %d", len(history))
	}
	for i, e := range history {
		if e.Step != i {
			t.Errorf("event %d has step %d, want %d", i, e.Step, i)
		}
	}
}

func TestBufferedEmitterUnknownRun(t *testing.T) {
	emitter := NewBufferedEmitter()
	history := emitter.GetHistory("nope")
	if history == nil || len(history) != 0 {
		t.Errorf("expected empty non-nil history, got %v", history)
	}
}

func TestBufferedEmitterFilter(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{RunID: "r", Step: 1, NodeID: "agent", Msg: "node_start"})
	emitter.Emit(Event{RunID: "r", Step: 1, NodeID: "agent", Msg: "node_complete"})
	emitter.Emit(Event{RunID: "r", Step: 2, NodeID: "tools", Msg: "node_start"})
	emitter.Emit(Event{RunID: "r", Step: 3, NodeID: "agent", Msg: "node_start"})

	tests := []struct {
		name   string
		filter HistoryFilter
		want   int
	}{
		{"by node", HistoryFilter{NodeID: "agent"}, 3},
		{"by msg", HistoryFilter{Msg: "node_start"}, 3},
		{"by node and msg", HistoryFilter{NodeID: "agent", Msg: "node_start"}, 2},
		{"by step range", HistoryFilter{MinStep: intPtr(2), MaxStep: intPtr(3)}, 2},
		{"empty filter matches all", HistoryFilter{}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := emitter.GetHistoryWithFilter("r", tt.filter)
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestBufferedEmitterClear(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{RunID: "a", Msg: "run_start"})
	emitter.Emit(Event{RunID: "b", Msg: "run_start"})

	emitter.Clear("a")
	if len(emitter.GetHistory("a")) != 0 {
		t.Error("run a should be cleared")
	}
	if len(emitter.GetHistory("b")) != 1 {
		t.Error("run b should be untouched")
	}

	emitter.Clear("")
	if len(emitter.GetHistory("b")) != 0 {
		t.Error("empty runID should clear everything")
	}
}

func TestBufferedEmitterConcurrent(t *testing.T) {
	emitter := NewBufferedEmitter()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			runID := fmt.Sprintf("run-%d", n)
			for j := 0; j < 50; j++ {
				emitter.Emit(Event{RunID: runID, Step: j})
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		runID := fmt.Sprintf("run-%d", i)
		if got := len(emitter.GetHistory(runID)); got != 50 {
			t.Errorf("%s: got %d events, want 50", runID, got)
		}
	}
}

func intPtr(n int) *int { return &n }
