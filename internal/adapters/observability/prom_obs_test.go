package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs(nil)

	obs.IncCounter("plant_readings_ingested_total", 3)
	if got := testutil.ToFloat64(obs.counters["plant_readings_ingested_total"]); got != 3 {
		t.Fatalf("expected ingested counter 3, got %f", got)
	}

	obs.IncCounter("plant_duplicate_readings_total", 1)
	if got := testutil.ToFloat64(obs.counters["plant_duplicate_readings_total"]); got != 1 {
		t.Fatalf("expected duplicate counter 1, got %f", got)
	}

	obs.SetGauge("plant_offline_pending", 7)
	if got := testutil.ToFloat64(obs.gauges["plant_offline_pending"]); got != 7 {
		t.Fatalf("expected pending gauge 7, got %f", got)
	}

	obs.SetGauge("plant_live_points", 42)
	if got := testutil.ToFloat64(obs.gauges["plant_live_points"]); got != 42 {
		t.Fatalf("expected live points gauge 42, got %f", got)
	}

	obs.ObserveLatency("plant_ingest_commit_latency_seconds", 0.25)
	hCollector := obs.histos["plant_ingest_commit_latency_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	// Unknown names are ignored rather than panicking.
	obs.IncCounter("no_such_metric", 1)
	obs.SetGauge("no_such_metric", 1)
	obs.ObserveLatency("no_such_metric", 1)
}
