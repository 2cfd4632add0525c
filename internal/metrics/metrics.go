// Package metrics exposes run counters as Prometheus metrics and flushes
// them to a node_exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"agriref/internal/timeline"
)

const namespace = "agriref"

// Metrics holds the counters of one ingest run.
type Metrics struct {
	Days           *prometheus.CounterVec
	GateFailures   prometheus.Counter
	Interpolations *prometheus.CounterVec
	Parcels        *prometheus.CounterVec
	RunDuration    prometheus.Gauge
	LastRun        prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers the run metrics on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.Days = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_total",
			Help:      "Dates reconciled by outcome",
		},
		[]string{"outcome"}, // scanned, candidate, emitted, duplicate, identity_miss, write_skip
	)
	m.GateFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_failures_total",
			Help:      "Artifacts the validity gate could not evaluate",
		},
	)
	m.Interpolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpolations_total",
			Help:      "Gap-fill requests by result",
		},
		[]string{"result"}, // computed, cached
	)
	m.Parcels = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parcels_total",
			Help:      "Parcels seen by the run by outcome",
		},
		[]string{"outcome"}, // registered, existing, skipped
	)
	m.RunDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		},
	)
	m.LastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		},
	)

	m.registry.MustRegister(m.Days, m.GateFailures, m.Interpolations, m.Parcels, m.RunDuration, m.LastRun)
	return m
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSummary adds a parcel's reconciliation summary.
func (m *Metrics) ObserveSummary(s timeline.Summary) {
	if m == nil {
		return
	}
	m.Days.WithLabelValues("scanned").Add(float64(s.DaysScanned))
	m.Days.WithLabelValues("candidate").Add(float64(s.Candidates))
	m.Days.WithLabelValues("emitted").Add(float64(s.Emitted))
	m.Days.WithLabelValues("duplicate").Add(float64(s.Duplicates))
	m.Days.WithLabelValues("identity_miss").Add(float64(s.IdentityMisses))
	m.Days.WithLabelValues("write_skip").Add(float64(s.WriteSkips))
	m.GateFailures.Add(float64(s.GateFailures))
	m.Interpolations.WithLabelValues("computed").Add(float64(s.Interpolations))
	m.Interpolations.WithLabelValues("cached").Add(float64(s.CacheHits))
}

// ObserveParcel counts one parcel with outcome registered, existing, or skipped.
func (m *Metrics) ObserveParcel(outcome string) {
	if m == nil {
		return
	}
	m.Parcels.WithLabelValues(outcome).Inc()
}

// Finish records the run duration and completion time.
func (m *Metrics) Finish(elapsed time.Duration, now time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Set(elapsed.Seconds())
	m.LastRun.Set(float64(now.Unix()))
}

// WriteTextfile writes the metrics in text exposition format to path.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics: ensure textfile dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
