package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"agriref/internal/metrics"
	"agriref/internal/timeline"
)

func TestObserveSummaryAccumulates(t *testing.T) {
	m := metrics.New()
	m.ObserveSummary(timeline.Summary{DaysScanned: 3, Candidates: 1, Emitted: 1, Interpolations: 1})
	m.ObserveSummary(timeline.Summary{DaysScanned: 3, Candidates: 1, Duplicates: 1, CacheHits: 1, GateFailures: 2})

	checks := map[string]float64{
		"scanned":   6,
		"candidate": 2,
		"emitted":   1,
		"duplicate": 1,
	}
	for outcome, want := range checks {
		if got := testutil.ToFloat64(m.Days.WithLabelValues(outcome)); got != want {
			t.Fatalf("days{%s}: got %v want %v", outcome, got, want)
		}
	}
	if got := testutil.ToFloat64(m.GateFailures); got != 2 {
		t.Fatalf("gate failures: got %v want 2", got)
	}
	if got := testutil.ToFloat64(m.Interpolations.WithLabelValues("cached")); got != 1 {
		t.Fatalf("cached interpolations: got %v want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := metrics.New()
	m.ObserveParcel("registered")
	m.Finish(1500*time.Millisecond, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "nested", "agriref.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`agriref_parcels_total{outcome="registered"} 1`,
		"agriref_run_duration_seconds 1.5",
		"agriref_last_run_timestamp_seconds 1.7e+09",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("textfile missing %q:\n%s", want, text)
		}
	}

	if err := m.WriteTextfile(""); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
}
