package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/foxfirecodes/datadog-viewer/internal/catalog"
	"github.com/foxfirecodes/datadog-viewer/internal/history"
	"github.com/foxfirecodes/datadog-viewer/internal/state"
)

type memSink struct {
	mu     sync.Mutex
	events []history.Event
}

func (m *memSink) Send(_ context.Context, e history.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memSink) byType(t history.EventType) []history.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []history.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTracker(t *testing.T, rows int) (*Tracker, *memSink) {
	t.Helper()
	dir := t.TempDir()
	csv := ""
	for i := 0; i < rows; i++ {
		csv += fmt.Sprintf("\"ts-%d\",\"{\"\"test\"\":{\"\"name\"\":\"\"t%d\"\"},\"\"error\"\":{\"\"message\"\":\"\"m%d\"\"}}\"\n", i, i, i)
	}
	csvPath := filepath.Join(dir, "errors.csv")
	if err := os.WriteFile(csvPath, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}
	sink := &memSink{}
	tr, err := New(Options{
		CSVPath: csvPath,
		State:   state.Config{Path: filepath.Join(dir, "state.json")},
		Sink:    sink,
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr, sink
}

func TestTrackerLoadsAndCounts(t *testing.T) {
	tr, sink := newTracker(t, 4)
	if tr.Len() != 4 {
		t.Fatalf("expected 4 records, got %d", tr.Len())
	}
	st := tr.Stats()
	if st.Total != 4 || st.Addressed != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if got := sink.byType(history.EventReload); len(got) != 1 {
		t.Fatalf("expected 1 reload event, got %d", len(got))
	}
}

func TestTrackerToggleRoundTrip(t *testing.T) {
	tr, sink := newTracker(t, 2)
	id := tr.Page(1, 10).Records[0].ID

	v, err := tr.Toggle(id)
	if err != nil || !v {
		t.Fatalf("toggle: %v %v", v, err)
	}
	if tr.Stats().Addressed != 1 {
		t.Fatalf("stats not updated: %+v", tr.Stats())
	}

	v, err = tr.Toggle(id)
	if err != nil || v {
		t.Fatalf("second toggle: %v %v", v, err)
	}
	if tr.Stats().Addressed != 0 {
		t.Fatalf("stats not restored: %+v", tr.Stats())
	}

	toggles := sink.byType(history.EventToggle)
	if len(toggles) != 2 || !toggles[0].Addressed || toggles[1].Addressed {
		t.Fatalf("unexpected audit trail: %+v", toggles)
	}
}

func TestTrackerToggleUnknownID(t *testing.T) {
	tr, _ := newTracker(t, 1)
	v, err := tr.Toggle("x")
	if err != nil {
		t.Fatalf("toggle unknown id: %v", err)
	}
	if !v {
		t.Fatal("unknown id must flip false -> true")
	}
	// Not in the catalog, so aggregates ignore it.
	if tr.Stats().Addressed != 0 {
		t.Fatalf("stale id must not affect stats: %+v", tr.Stats())
	}
}

func TestTrackerMissingCSVStaysQueryable(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(Options{
		CSVPath: filepath.Join(dir, "absent.csv"),
		State:   state.Config{Path: filepath.Join(dir, "state.json")},
	})
	if err != nil {
		t.Fatalf("new must not fail on missing csv: %v", err)
	}
	defer func() { _ = tr.Close() }()

	st := tr.Stats()
	if st.Total != 0 || st.ProgressPercent != 0.0 {
		t.Fatalf("expected empty stats: %+v", st)
	}
	p := tr.Page(1, 50)
	if p.TotalPages != 1 || len(p.Records) != 0 {
		t.Fatalf("expected empty page: %+v", p)
	}
	if err := tr.Reload(); !errors.Is(err, catalog.ErrSourceUnavailable) {
		t.Fatalf("explicit reload must report the source error: %v", err)
	}
}

func TestTrackerAddressedSurvivesReload(t *testing.T) {
	tr, _ := newTracker(t, 3)
	id := tr.Page(1, 10).Records[1].ID
	if _, err := tr.Toggle(id); err != nil {
		t.Fatal(err)
	}
	if err := tr.Reload(); err != nil {
		t.Fatal(err)
	}
	rec, err := tr.Record(id)
	if err != nil {
		t.Fatalf("record lost after reload: %v", err)
	}
	if !rec.Addressed {
		t.Fatal("addressed flag lost after reload")
	}
}

func TestTrackerPersistErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "errors.csv")
	if err := os.WriteFile(csvPath, []byte(`"ts","{""error"":{""message"":""m""}}"`+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	tr, err := New(Options{
		CSVPath: csvPath,
		State:   state.Config{Path: filepath.Join(dir, "no-such-dir", "state.json")},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = tr.Close() }()

	v, err := tr.Toggle("a")
	var pe *state.PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistError, got %v", err)
	}
	if !v {
		t.Fatal("toggle value must be reported even when persist fails")
	}
	// The in-memory mapping kept the flip, so the next toggle flips back.
	v, err = tr.Toggle("a")
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistError again, got %v", err)
	}
	if v {
		t.Fatal("second toggle must return false, proving the first one stuck in memory")
	}
}
