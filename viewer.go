package viewer

import (
	"net/http"
	"time"

	"github.com/foxfirecodes/datadog-viewer/internal/catalog"
	cfg "github.com/foxfirecodes/datadog-viewer/internal/config"
	"github.com/foxfirecodes/datadog-viewer/internal/history"
	hfactory "github.com/foxfirecodes/datadog-viewer/internal/history/factory"
	"github.com/foxfirecodes/datadog-viewer/internal/metrics"
	"github.com/foxfirecodes/datadog-viewer/internal/record"
	iapi "github.com/foxfirecodes/datadog-viewer/internal/server"
	"github.com/foxfirecodes/datadog-viewer/internal/state"
	"github.com/foxfirecodes/datadog-viewer/internal/tracker"
	"github.com/foxfirecodes/datadog-viewer/internal/view"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Record = record.Record

type Stats = view.Stats

type Page = view.Page

type Entry = view.Entry

type Skip = catalog.Skip

type Options = tracker.Options

type StateConfig = state.Config

type PersistError = state.PersistError

type HistorySink = history.Sink

type HistoryEvent = history.Event

// ErrSourceUnavailable marks a reload that could not open the CSV source.
var ErrSourceUnavailable = catalog.ErrSourceUnavailable

// ErrNotFound marks a lookup for an id the catalog does not hold.
var ErrNotFound = catalog.ErrNotFound

// Tracker is a thin facade over internal/tracker.Tracker.
// It provides a stable public API for embedding.

type Tracker struct{ inner *tracker.Tracker }

func New(opts Options) (*Tracker, error) {
	inner, err := tracker.New(opts)
	if err != nil {
		return nil, err
	}
	return &Tracker{inner: inner}, nil
}

func (t *Tracker) Reload() error                         { return t.inner.Reload() }
func (t *Tracker) Stats() Stats                          { return t.inner.Stats() }
func (t *Tracker) Page(n, size int) Page                 { return t.inner.Page(n, size) }
func (t *Tracker) Record(id string) (Entry, error)       { return t.inner.Record(id) }
func (t *Tracker) Toggle(id string) (bool, error)        { return t.inner.Toggle(id) }
func (t *Tracker) Set(id string, addressed bool) error   { return t.inner.Set(id, addressed) }
func (t *Tracker) Skips() []Skip                         { return t.inner.Skips() }
func (t *Tracker) Len() int                              { return t.inner.Len() }
func (t *Tracker) Close() error                          { return t.inner.Close() }

func LoadConfig(path string) (*cfg.Config, error) {
	return cfg.Load(path)
}

// NewHTTPServer starts an HTTP server exposing the internal API using the given tracker.
func NewHTTPServer(addr, basePath string, t *Tracker) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, t.inner)
}

// NewHistorySink builds an audit sink from a DSN (sqlite://, postgres://, clickhouse://).
func NewHistorySink(dsn string) (HistorySink, error) {
	return hfactory.NewSinkFromDSN(dsn)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
