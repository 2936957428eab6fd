package state

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps addressed flags in a single-table SQLite database
// for deployments that prefer a database file over JSON. The full
// mapping is cached in memory at open so reads never touch the
// database; mutations upsert the affected row synchronously.
type SQLiteStore struct {
	mu    sync.Mutex
	db    *sql.DB
	flags map[string]bool
}

// NewSQLiteStore opens (or creates) the database at path. An empty
// path means an in-memory database, useful for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite state store: %w", err)
	}
	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, flags: make(map[string]bool)}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.loadAll(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS addressed(
		id TEXT PRIMARY KEY,
		addressed INTEGER NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create addressed table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadAll(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, addressed FROM addressed`)
	if err != nil {
		return fmt.Errorf("load addressed state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id string
		var v bool
		if err := rows.Scan(&id, &v); err != nil {
			return fmt.Errorf("scan addressed row: %w", err)
		}
		s.flags[id] = v
	}
	return rows.Err()
}

func (s *SQLiteStore) IsAddressed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[id]
}

func (s *SQLiteStore) Toggle(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := !s.flags[id]
	s.flags[id] = v
	return v, s.persistLocked(id, v)
}

func (s *SQLiteStore) Set(id string, addressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[id] = addressed
	return s.persistLocked(id, addressed)
}

func (s *SQLiteStore) Snapshot() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) persistLocked(id string, v bool) error {
	_, err := s.db.Exec(`
		INSERT INTO addressed(id, addressed) VALUES(?, ?)
		ON CONFLICT(id) DO UPDATE SET addressed = excluded.addressed;`,
		id, v)
	if err != nil {
		return &PersistError{Target: "sqlite state store", Err: err}
	}
	return nil
}
