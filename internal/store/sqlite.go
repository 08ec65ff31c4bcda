package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore persists runs to a single SQLite table, one JSON payload per run.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts or replaces the run row.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *Run) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, name, created_at_ms, payload) VALUES (?, ?, ?, ?)`,
		r.ID, r.Name, r.CreatedAtMs, payload); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by its full ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	return decodeRun(payload)
}

// ListRuns returns matching runs, oldest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, f Filter) ([]*Run, error) {
	query := `SELECT payload FROM runs WHERE 1 = 1`
	var args []any
	if f.SinceMs > 0 {
		query += ` AND created_at_ms >= ?`
		args = append(args, f.SinceMs)
	}
	if f.UntilMs > 0 {
		query += ` AND created_at_ms <= ?`
		args = append(args, f.UntilMs)
	}
	query += ` ORDER BY created_at_ms, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		r, err := decodeRun(payload)
		if err != nil {
			return nil, err
		}
		if f.Match(r) {
			runs = append(runs, r)
		}
	}
	return runs, rows.Err()
}

// RunIDs returns every stored run ID, oldest first.
func (s *SQLiteStore) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY created_at_ms, id`)
	if err != nil {
		return nil, fmt.Errorf("select run ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func decodeRun(payload []byte) (*Run, error) {
	var r Run
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &r, nil
}
