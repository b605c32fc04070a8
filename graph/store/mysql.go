package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store[S].
//
// Designed for deployments where several workers share one checkpoint
// database: any worker can resume a run another worker started.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type MySQLStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a MySQL-backed store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Example:
//
//	user:pass@tcp(localhost:3306)/docreel?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment or config.
// The store pings the server, creates the schema if missing, and configures
// connection pooling.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	st := &MySQLStore[S]{db: db}
	if err := st.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return st, nil
}

// createTables creates the checkpoint schema if it doesn't exist.
func (m *MySQLStore[S]) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS run_checkpoints (
			run_id VARCHAR(255) PRIMARY KEY,
			state JSON NOT NULL,
			last_node VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			updated_at TIMESTAMP(6) NOT NULL,
			INDEX idx_checkpoints_status (status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create run_checkpoints table: %w", err)
	}
	return nil
}

// Save writes or overwrites the checkpoint for cp.RunID.
func (m *MySQLStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

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
		ON DUPLICATE KEY UPDATE
			state = VALUES(state),
			last_node = VALUES(last_node),
			status = VALUES(status),
			updated_at = VALUES(updated_at)
	`
	if _, err := m.db.ExecContext(ctx, query, cp.RunID, string(stateJSON), cp.LastNode, string(cp.Status), updatedAt); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load returns the latest checkpoint for runID, or ErrNotFound.
func (m *MySQLStore[S]) Load(ctx context.Context, runID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return zero, fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	query := `SELECT state, last_node, status, updated_at FROM run_checkpoints WHERE run_id = ?`
	var (
		stateJSON []byte
		lastNode  string
		status    string
		updatedAt time.Time
	)
	err := m.db.QueryRowContext(ctx, query, runID).Scan(&stateJSON, &lastNode, &status, &updatedAt)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var state S
	if err := json.Unmarshal(stateJSON, &state); err != nil {
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
func (m *MySQLStore[S]) Delete(ctx context.Context, runID string) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	if _, err := m.db.ExecContext(ctx, `DELETE FROM run_checkpoints WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// List returns the run IDs with a stored checkpoint, ordered by recency.
func (m *MySQLStore[S]) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	rows, err := m.db.QueryContext(ctx, `SELECT run_id FROM run_checkpoints ORDER BY updated_at DESC`)
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

// Close releases the connection pool. The store is unusable afterwards.
func (m *MySQLStore[S]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}
