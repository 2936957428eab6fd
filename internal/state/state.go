package state

import (
	"fmt"
)

// Store is the durable addressed-flag mapping keyed by record id.
// Unknown ids read as false; entries are created on first Toggle/Set.
// Mutations persist synchronously before returning, and
// implementations serialize them so concurrent toggles cannot lose an
// update. Entries for ids outside the current catalog are kept
// verbatim and simply never joined.
type Store interface {
	// IsAddressed reports the current flag for id, false when absent.
	IsAddressed(id string) bool
	// Toggle flips the flag for id and persists, returning the new value.
	// On PersistError the in-memory flip is kept; see PersistError.
	Toggle(id string) (bool, error)
	// Set forces the flag for id and persists.
	Set(id string, addressed bool) error
	// Snapshot returns a copy of the full mapping, extra keys included.
	Snapshot() map[string]bool
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	// Type is "json" (default), "sqlite", "postgres" or "postgresql".
	Type string `toml:"type" mapstructure:"type"`
	// Path is the JSON state file or SQLite database path.
	Path string `toml:"path" mapstructure:"path"`
	// DSN is the PostgreSQL connection string.
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// PersistError reports a failed durable write. The in-memory mapping
// already holds the mutation, so the running process stays consistent
// with itself, but the caller must surface that the change may not
// survive a restart.
type PersistError struct {
	Target string
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist addressed state to %s: %v", e.Target, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
