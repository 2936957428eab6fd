package state

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the addressed mapping in a flat JSON document,
// { "<id>": true|false, ... }, rewritten whole on every mutation.
// A missing or corrupt file loads as an empty mapping. Keys for
// records no longer in the catalog are preserved and rewritten
// unchanged.
type FileStore struct {
	mu    sync.Mutex
	path  string
	flags map[string]bool
}

// NewFileStore opens the state file at path, loading whatever is
// there. Load problems are logged and yield an empty mapping, never
// an error: absent state is a normal first run.
func NewFileStore(path string) *FileStore {
	s := &FileStore{path: path, flags: make(map[string]bool)}
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("addressed state unreadable, starting empty", "path", path, "error", err)
		}
		return s
	}
	if err := json.Unmarshal(b, &s.flags); err != nil {
		slog.Warn("addressed state corrupt, starting empty", "path", path, "error", err)
		s.flags = make(map[string]bool)
	}
	return s
}

func (s *FileStore) IsAddressed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[id]
}

func (s *FileStore) Toggle(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := !s.flags[id]
	s.flags[id] = v
	return v, s.persistLocked()
}

func (s *FileStore) Set(id string, addressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[id] = addressed
	return s.persistLocked()
}

func (s *FileStore) Snapshot() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

func (s *FileStore) Close() error { return nil }

// persistLocked replaces the state file via temp file + rename so a
// crash mid-write cannot leave a truncated document behind.
func (s *FileStore) persistLocked() error {
	b, err := json.MarshalIndent(s.flags, "", "  ")
	if err != nil {
		return &PersistError{Target: s.path, Err: err}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return &PersistError{Target: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &PersistError{Target: s.path, Err: err}
	}
	return nil
}
