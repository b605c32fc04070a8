package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testState struct {
	Document string `json:"document"`
	Pages    int    `json:"pages"`
}

// runStoreContract exercises the behavior every Store implementation must
// share. Backend tests call it with their own constructor.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store[testState]) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing returns ErrNotFound", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Load(ctx, "no-such-run")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("save and load roundtrip", func(t *testing.T) {
		st := newStore(t)
		cp := Checkpoint[testState]{
			RunID:     "run-1",
			State:     testState{Document: "report.pdf", Pages: 12},
			LastNode:  "document_to_pages",
			Status:    StatusRunning,
			UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
		if err := st.Save(ctx, cp); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := st.Load(ctx, "run-1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.RunID != cp.RunID || got.LastNode != cp.LastNode || got.Status != cp.Status {
			t.Errorf("loaded checkpoint mismatch: got %+v, want %+v", got, cp)
		}
		if got.State != cp.State {
			t.Errorf("state mismatch: got %+v, want %+v", got.State, cp.State)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("UpdatedAt was not persisted")
		}
	})

	t.Run("save overwrites previous checkpoint", func(t *testing.T) {
		st := newStore(t)
		first := Checkpoint[testState]{RunID: "run-2", LastNode: "a", Status: StatusRunning}
		second := Checkpoint[testState]{RunID: "run-2", LastNode: "b", Status: StatusCompleted}

		if err := st.Save(ctx, first); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := st.Save(ctx, second); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := st.Load(ctx, "run-2")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.LastNode != "b" || got.Status != StatusCompleted {
			t.Errorf("expected latest checkpoint, got %+v", got)
		}
	})

	t.Run("delete removes and is idempotent", func(t *testing.T) {
		st := newStore(t)
		if err := st.Save(ctx, Checkpoint[testState]{RunID: "run-3", Status: StatusPending}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := st.Delete(ctx, "run-3"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := st.Load(ctx, "run-3"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := st.Delete(ctx, "run-3"); err != nil {
			t.Fatalf("second Delete failed: %v", err)
		}
	})

	t.Run("list returns saved run IDs", func(t *testing.T) {
		st := newStore(t)
		for _, id := range []string{"run-a", "run-b", "run-c"} {
			if err := st.Save(ctx, Checkpoint[testState]{RunID: id, Status: StatusRunning}); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}

		ids, err := st.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(ids) != 3 {
			t.Fatalf("expected 3 run IDs, got %d: %v", len(ids), ids)
		}
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			seen[id] = true
		}
		for _, want := range []string{"run-a", "run-b", "run-c"} {
			if !seen[want] {
				t.Errorf("List missing %q", want)
			}
		}
	})
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusInterrupted, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("Status(%q).Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}
