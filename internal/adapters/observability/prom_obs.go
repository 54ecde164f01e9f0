package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/christianJames24/IoT-2/internal/ports"
)

// PromObs implements ports.Observability with Prometheus metrics and slog
// structured logging.
type PromObs struct {
	log      *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the pipeline metric families on the default
// registerer. Pass nil to log through slog.Default.
func NewPromObs(log *slog.Logger) *PromObs {
	if log == nil {
		log = slog.Default()
	}

	counters := map[string]prometheus.Counter{}
	for name, help := range map[string]string{
		"plant_samples_read_total":         "Raw sensor samples read successfully.",
		"plant_sensor_read_failures_total": "Sensor reads that failed and were skipped.",
		"plant_readings_aggregated_total":  "Averaged readings emitted by the aggregator.",
		"plant_offline_enqueued_total":     "Readings persisted to the offline queue.",
		"plant_offline_drained_total":      "Offline records delivered and removed.",
		"plant_publish_attempts_total":     "Publish attempts against the broker.",
		"plant_publish_failures_total":     "Publish attempts the broker did not accept.",
		"plant_readings_ingested_total":    "Readings committed to the durable store.",
		"plant_duplicate_readings_total":   "Deliveries skipped as exact-timestamp duplicates.",
		"plant_rejected_payloads_total":    "Deliveries rejected as unparseable.",
		"plant_store_errors_total":         "Durable store transactions rolled back.",
	} {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		prometheus.MustRegister(c)
		counters[name] = c
	}

	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plant_offline_pending",
		Help: "Offline records currently awaiting delivery.",
	})
	livePoints := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plant_live_points",
		Help: "Points currently held in the in-memory live view.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "plant_ingest_commit_latency_seconds",
		Help:    "Latency from delivery to durable commit.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	prometheus.MustRegister(pending, livePoints, latency)

	return &PromObs{
		log:      log,
		counters: counters,
		gauges: map[string]prometheus.Gauge{
			"plant_offline_pending": pending,
			"plant_live_points":     livePoints,
		},
		histos:   map[string]prometheus.Observer{"plant_ingest_commit_latency_seconds": latency},
	}
}

func (p *PromObs) LogDebug(msg string, fields ...ports.Field) {
	p.log.Debug(msg, attrs(fields)...)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), slog.Any("err", err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), slog.Any("err", err), slog.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
