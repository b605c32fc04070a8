package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It persists checkpoints in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Single-process pipelines that must survive restarts
//   - Prototyping before migrating to a shared store
//
// SQLiteStore uses WAL mode so readers don't block on the writer.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLiteStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a SQLite-backed store.
//
// The path parameter specifies the database file location:
//   - "./runs.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
//
// The store creates the database file and schema if they don't exist and
// enables WAL mode with a 5 second busy timeout.
//
// Example:
//
//	st, err := NewSQLiteStore[State]("./runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	st := &SQLiteStore[S]{db: db, path: path}
	if err := st.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return st, nil
}

// createTables creates the checkpoint schema if it doesn't exist.
func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS run_checkpoints (
			run_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			last_node TEXT NOT NULL,
			status TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create run_checkpoints table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_checkpoints_status ON run_checkpoints(status)"); err != nil {
		return fmt.Errorf("failed to create idx_checkpoints_status: %w", err)
	}
	return nil
}

// Save writes or overwrites the checkpoint for cp.RunID.
func (s *SQLiteStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	updatedAt := cp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO run_checkpoints (run_id, state, last_node, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			state = excluded.state,
			last_node = excluded.last_node,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, cp.RunID, string(stateJSON), cp.LastNode, string(cp.Status), updatedAt.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load returns the latest checkpoint for runID, or ErrNotFound.
func (s *SQLiteStore[S]) Load(ctx context.Context, runID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return zero, fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query := `SELECT state, last_node, status, updated_at FROM run_checkpoints WHERE run_id = ?`
	var (
		stateJSON  string
		lastNode   string
		status     string
		updatedRaw string
	)
	err := s.db.QueryRowContext(ctx, query, runID).Scan(&stateJSON, &lastNode, &status, &updatedRaw)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, updatedRaw)
	if err != nil {
		return zero, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	var state S
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return Checkpoint[S]{
		RunID:     runID,
		State:     state,
		LastNode:  lastNode,
		Status:    Status(status),
		UpdatedAt: updatedAt,
	}, nil
}

// Delete removes the checkpoint for runID. Absent run IDs are a no-op.
func (s *SQLiteStore[S]) Delete(ctx context.Context, runID string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_checkpoints WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// List returns the run IDs with a stored checkpoint, ordered by recency.
func (s *SQLiteStore[S]) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM run_checkpoints ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checkpoints: %w", err)
	}
	return ids, nil
}

// Close releases the underlying database connection. The store is unusable
// afterwards.
func (s *SQLiteStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
