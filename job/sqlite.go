package job

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store.
//
// Jobs live in a single-file database so a restarted process still
// knows what it was working on. It can share the checkpoint database
// file; the schemas don't collide.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed job store at path, creating
// the file and schema as needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
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
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	table := `
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			progress TEXT NOT NULL,
			input TEXT NOT NULL,
			language TEXT NOT NULL,
			output TEXT NOT NULL,
			error TEXT NOT NULL,
			created_at TEXT NOT NULL,
			started_at TEXT,
			finished_at TEXT
		)
	`
	if _, err := db.ExecContext(ctx, table); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create idx_jobs_status: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save writes or overwrites the record for j.ID.
func (s *SQLiteStore) Save(ctx context.Context, j Job) error {
	query := `
		INSERT INTO jobs (id, status, progress, input, language, output, error, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			output = excluded.output,
			error = excluded.error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`
	_, err := s.db.ExecContext(ctx, query,
		j.ID, string(j.Status), j.Progress, j.Input, j.Language, j.Output, j.Error,
		j.CreatedAt.UTC().Format(time.RFC3339Nano), formatNullableTime(j.StartedAt), formatNullableTime(j.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// Load returns the record for id, or ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, progress, input, language, output, error, created_at, started_at, finished_at
		 FROM jobs WHERE id = ?`, id)

	j, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("failed to load job: %w", err)
	}
	return j, nil
}

// List returns all jobs, most recently created first.
func (s *SQLiteStore) List(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, progress, input, language, output, error, created_at, started_at, finished_at
		 FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanJob(scan func(...interface{}) error) (Job, error) {
	var (
		j          Job
		status     string
		createdRaw string
		startedRaw sql.NullString
		finished   sql.NullString
	)
	err := scan(&j.ID, &status, &j.Progress, &j.Input, &j.Language, &j.Output, &j.Error,
		&createdRaw, &startedRaw, &finished)
	if err != nil {
		return Job{}, err
	}
	j.Status = Status(status)

	if j.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
		return Job{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if j.StartedAt, err = parseNullableTime(startedRaw); err != nil {
		return Job{}, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if j.FinishedAt, err = parseNullableTime(finished); err != nil {
		return Job{}, fmt.Errorf("failed to parse finished_at: %w", err)
	}
	return j, nil
}

func formatNullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullableTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
