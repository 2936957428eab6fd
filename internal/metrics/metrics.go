package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	rowsParsed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ddviewer",
			Subsystem: "catalog",
			Name:      "rows_parsed_total",
			Help:      "Number of input rows parsed into records.",
		},
	)
	rowsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ddviewer",
			Subsystem: "catalog",
			Name:      "rows_skipped_total",
			Help:      "Number of input rows skipped, by reason.",
		}, []string{"reason"},
	)
	catalogRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ddviewer",
			Subsystem: "catalog",
			Name:      "records",
			Help:      "Records in the current catalog.",
		},
	)
	reloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ddviewer",
			Subsystem: "catalog",
			Name:      "reloads_total",
			Help:      "Number of catalog loads, including the initial one.",
		},
	)
	toggles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ddviewer",
			Subsystem: "state",
			Name:      "toggles_total",
			Help:      "Number of addressed-flag toggles.",
		},
	)
	persistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ddviewer",
			Subsystem: "state",
			Name:      "persist_failures_total",
			Help:      "Number of failed durable writes of addressed state.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{rowsParsed, rowsSkipped, catalogRecords, reloads, toggles, persistFailures}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func AddRowsParsed(n int) {
	if regOK.Load() {
		rowsParsed.Add(float64(n))
	}
}

func IncRowSkipped(reason string) {
	if regOK.Load() {
		rowsSkipped.WithLabelValues(reason).Inc()
	}
}

func SetCatalogRecords(n int) {
	if regOK.Load() {
		catalogRecords.Set(float64(n))
	}
}

func IncReload() {
	if regOK.Load() {
		reloads.Inc()
	}
}

func IncToggle() {
	if regOK.Load() {
		toggles.Inc()
	}
}

func IncPersistFailure() {
	if regOK.Load() {
		persistFailures.Inc()
	}
}
