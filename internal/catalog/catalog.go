package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/foxfirecodes/datadog-viewer/internal/record"
)

// ErrSourceUnavailable marks a load attempt whose input could not be
// opened at all. The catalog stays empty and queryable; callers treat
// this as degraded-but-running, never as a process failure.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrNotFound is returned by Get for unknown record ids.
var ErrNotFound = errors.New("record not found")

// Skip describes one excluded input row, for diagnostics only.
type Skip struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Catalog is the ordered in-memory set of records produced by one
// load. It is rebuilt wholesale by Load and treated as read-only in
// between; insertion order is the canonical display order. Addressed
// flags live in the state store, not here.
type Catalog struct {
	mu      sync.RWMutex
	path    string
	records []record.Record
	byID    map[string]int
	skips   []Skip
}

// New creates a catalog bound to a CSV export path. Call Load before
// querying; a fresh catalog is empty.
func New(path string) *Catalog {
	return &Catalog{path: path, byID: make(map[string]int)}
}

// Load reads the whole input and replaces the catalog contents. Rows
// that fail to parse are skipped with a reason and never abort the
// load. When the file cannot be opened the catalog is emptied and an
// error wrapping ErrSourceUnavailable is returned.
func (c *Catalog) Load() error {
	f, err := os.Open(filepath.Clean(c.path))
	if err != nil {
		c.replace(nil, nil)
		return fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, c.path, err)
	}
	defer func() { _ = f.Close() }()

	records, skips := c.read(f)
	c.replace(records, skips)
	return nil
}

// read consumes the CSV stream row by row. Row ordinals are 1-based
// and count every row seen, including skipped ones, so appending rows
// to the export never shifts earlier ids.
func (c *Catalog) read(r io.Reader) ([]record.Record, []Skip) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate extra columns
	cr.LazyQuotes = true

	var records []record.Record
	var skips []Skip
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skips = append(skips, Skip{Line: line, Reason: "malformed row"})
				continue
			}
			slog.Warn("csv read aborted", "path", c.path, "line", line, "error", err)
			break
		}
		if line == 1 && looksLikeHeader(row) {
			continue
		}
		rec, reason := record.ParseRow(line, row)
		if reason != "" {
			skips = append(skips, Skip{Line: line, Reason: reason})
			continue
		}
		records = append(records, rec)
	}
	return records, skips
}

func (c *Catalog) replace(records []record.Record, skips []Skip) {
	byID := make(map[string]int, len(records))
	for i, rec := range records {
		byID[rec.ID] = i
	}
	c.mu.Lock()
	c.records = records
	c.byID = byID
	c.skips = skips
	c.mu.Unlock()
}

// Get looks up a record by id in O(1).
func (c *Catalog) Get(id string) (record.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return record.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.records[i], nil
}

// All returns the records in input order. Consumers treat the slice as
// read-only.
func (c *Catalog) All() []record.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records
}

// Len reports the number of records in the current catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Skips returns the per-row exclusions recorded by the last load.
func (c *Catalog) Skips() []Skip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skips
}

// looksLikeHeader reports whether the first row reads as CSV column
// titles rather than data: a header's payload column is not JSON.
func looksLikeHeader(row []string) bool {
	if len(row) < 2 {
		return false
	}
	payload := strings.TrimSpace(row[1])
	return payload != "" && payload[0] != '{' && payload[0] != '['
}
