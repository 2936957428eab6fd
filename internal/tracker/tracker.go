package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/foxfirecodes/datadog-viewer/internal/catalog"
	"github.com/foxfirecodes/datadog-viewer/internal/history"
	"github.com/foxfirecodes/datadog-viewer/internal/metrics"
	"github.com/foxfirecodes/datadog-viewer/internal/state"
	"github.com/foxfirecodes/datadog-viewer/internal/view"
)

// DefaultPageSize is used when a query does not specify one.
const DefaultPageSize = 50

// Tracker owns the catalog, the addressed-state store and the
// aggregation view. It is the single object the HTTP layer and the
// CLI operate on. The catalog is rebuilt wholesale by Reload; the
// state store is the only durable, mutable piece and outlives any
// single load.
type Tracker struct {
	catalog  *catalog.Catalog
	state    state.Store
	view     *view.View
	sink     history.Sink
	pageSize int
}

// Options configures a Tracker.
type Options struct {
	// CSVPath is the DataDog export to ingest.
	CSVPath string
	// State selects the addressed-flag store backend.
	State state.Config
	// PageSize is the default page size; DefaultPageSize when <= 0.
	PageSize int
	// Sink, when set, receives an audit event per toggle and reload.
	Sink history.Sink
}

// New builds a Tracker and performs the initial load. An unopenable
// CSV leaves the tracker running with an empty catalog: the process
// must stay queryable in the degraded state, so only store setup
// failures are returned as errors.
func New(opts Options) (*Tracker, error) {
	st, err := state.CreateStore(opts.State)
	if err != nil {
		return nil, err
	}
	c := catalog.New(opts.CSVPath)
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	t := &Tracker{
		catalog:  c,
		state:    st,
		view:     view.New(c, st),
		sink:     opts.Sink,
		pageSize: size,
	}
	if err := t.Reload(); err != nil {
		slog.Warn("initial load failed, serving empty catalog", "csv", opts.CSVPath, "error", err)
	}
	return t, nil
}

// Reload rebuilds the catalog from the input source. Addressed
// entries whose ids vanish from the new catalog stay in the state
// store untouched. Returns an error wrapping
// catalog.ErrSourceUnavailable when the input cannot be opened; the
// catalog is then empty but still queryable.
func (t *Tracker) Reload() error {
	err := t.catalog.Load()
	metrics.IncReload()
	metrics.SetCatalogRecords(t.catalog.Len())
	if err != nil {
		return err
	}
	metrics.AddRowsParsed(t.catalog.Len())
	for _, s := range t.catalog.Skips() {
		metrics.IncRowSkipped(s.Reason)
		slog.Warn("skipped input row", "line", s.Line, "reason", s.Reason)
	}
	t.audit(history.Event{Type: history.EventReload, OccurredAt: time.Now().UTC()})
	slog.Info("catalog loaded", "records", t.catalog.Len(), "skipped", len(t.catalog.Skips()))
	return nil
}

// Stats returns the aggregate counts for the current catalog.
func (t *Tracker) Stats() view.Stats { return t.view.Stats() }

// Page returns the n-th page. size <= 0 falls back to the configured
// default page size.
func (t *Tracker) Page(n, size int) view.Page {
	if size <= 0 {
		size = t.pageSize
	}
	return t.view.PageOf(n, size)
}

// Record returns the full record for id with its addressed flag, or
// an error wrapping catalog.ErrNotFound.
func (t *Tracker) Record(id string) (view.Entry, error) {
	return t.view.Entry(id)
}

// Toggle flips the addressed flag for id and persists it, returning
// the new value. The id does not need to exist in the current catalog;
// unknown ids start from false. A state.PersistError still carries a
// valid new value: the in-memory flag flipped but may not survive a
// restart, and the caller must report that distinctly.
func (t *Tracker) Toggle(id string) (bool, error) {
	v, err := t.state.Toggle(id)
	metrics.IncToggle()
	if err != nil {
		var pe *state.PersistError
		if errors.As(err, &pe) {
			metrics.IncPersistFailure()
		}
		return v, err
	}
	t.audit(history.Event{
		Type:       history.EventToggle,
		OccurredAt: time.Now().UTC(),
		RecordID:   id,
		Addressed:  v,
	})
	return v, nil
}

// Set forces the addressed flag for id.
func (t *Tracker) Set(id string, addressed bool) error {
	if err := t.state.Set(id, addressed); err != nil {
		var pe *state.PersistError
		if errors.As(err, &pe) {
			metrics.IncPersistFailure()
		}
		return err
	}
	t.audit(history.Event{
		Type:       history.EventToggle,
		OccurredAt: time.Now().UTC(),
		RecordID:   id,
		Addressed:  addressed,
	})
	return nil
}

// Skips returns the per-row exclusions from the last load.
func (t *Tracker) Skips() []catalog.Skip { return t.catalog.Skips() }

// Len reports the number of records in the current catalog.
func (t *Tracker) Len() int { return t.catalog.Len() }

// Close releases the state store.
func (t *Tracker) Close() error { return t.state.Close() }

// audit forwards an event to the sink, if any. Sink failures are
// logged and never surface to the user-facing operation.
func (t *Tracker) audit(e history.Event) {
	if t.sink == nil {
		return
	}
	if err := t.sink.Send(context.Background(), e); err != nil {
		slog.Warn("audit sink send failed", "type", string(e.Type), "error", err)
	}
}
