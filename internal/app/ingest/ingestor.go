package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/christianJames24/IoT-2/internal/domain"
	"github.com/christianJames24/IoT-2/internal/ports"
)

// Outcome classifies one delivery.
type Outcome int

const (
	// Committed: the reading was written to the store and the daily log.
	Committed Outcome = iota
	// Duplicate: a row with this exact timestamp already exists; nothing
	// was written. Expected during offline-queue overlap, not an error.
	Duplicate
	// Rejected: the payload was unparseable and was discarded.
	Rejected
	// Failed: the store transaction rolled back. The message is still
	// considered consumed; the log is the only record of the failure.
	Failed
	// Ignored: a topic the ingestor receives but does not persist.
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Duplicate:
		return "duplicate"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return "ignored"
	}
}

// Config tunes the ingestor.
type Config struct {
	// Timezone is the IANA zone the edge's wall-clock timestamps are
	// interpreted in. Normalization happens exactly once, here at the
	// ingestion boundary. Empty means UTC.
	Timezone string

	// StoreTimeout bounds each store call.
	StoreTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 10 * time.Second
	}
}

// Ingestor deduplicates incoming readings and commits accepted ones to the
// durable store plus the append-only daily log. Deliveries are handled one
// at a time, which keeps the check-then-insert sequence atomic; the store's
// unique index is the backstop if that ever changes.
type Ingestor struct {
	cfg   Config
	loc   *time.Location
	store ports.ReadingStore
	daily ports.DailyLog
	live  ports.LiveView
	obs   ports.Observability
}

func New(cfg Config, store ports.ReadingStore, daily ports.DailyLog, live ports.LiveView, obs ports.Observability) (*Ingestor, error) {
	cfg.applyDefaults()
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("ingest timezone %q: %w", cfg.Timezone, err)
		}
	}
	return &Ingestor{
		cfg:   cfg,
		loc:   loc,
		store: store,
		daily: daily,
		live:  live,
		obs:   obs,
	}, nil
}

// OnDelivery processes one broker delivery. No outcome terminates the
// ingestion loop; redelivering the same payload always yields exactly one
// persisted row pair.
func (i *Ingestor) OnDelivery(ctx context.Context, payload []byte, topic string) Outcome {
	if topic != "sensor/temphum" {
		// Moisture and light are subscribed but have no persisted schema
		// yet; they only feed the live view.
		i.handleAuxiliary(payload, topic)
		return Ignored
	}

	var r domain.AveragedReading
	if err := json.Unmarshal(payload, &r); err != nil {
		i.obs.IncCounter("plant_rejected_payloads_total", 1)
		i.obs.LogError("payload rejected", err, ports.Field{Key: "topic", Value: topic})
		return Rejected
	}
	ts, err := r.ParseTimestamp(i.loc)
	if err != nil {
		i.obs.IncCounter("plant_rejected_payloads_total", 1)
		i.obs.LogError("payload rejected", err, ports.Field{Key: "timestamp", Value: r.Timestamp})
		return Rejected
	}

	start := time.Now()
	opCtx, cancel := context.WithTimeout(ctx, i.cfg.StoreTimeout)
	defer cancel()

	exists, err := i.store.HasReadingAt(opCtx, ts)
	if err != nil {
		i.obs.IncCounter("plant_store_errors_total", 1)
		i.obs.LogError("duplicate check failed", err, ports.Field{Key: "timestamp", Value: r.Timestamp})
		return Failed
	}
	if exists {
		i.obs.IncCounter("plant_duplicate_readings_total", 1)
		i.obs.LogDebug("skipping duplicate reading", ports.Field{Key: "timestamp", Value: r.Timestamp})
		return Duplicate
	}

	// Daily log first: its append is the secondary durability net and its
	// path becomes the row's provenance.
	path, err := i.daily.Append(payload)
	if err != nil {
		i.obs.IncCounter("plant_store_errors_total", 1)
		i.obs.LogError("daily log append failed", err, ports.Field{Key: "timestamp", Value: r.Timestamp})
		return Failed
	}

	if err := i.store.InsertAveraged(opCtx, ts, r.Temperature, r.Humidity, path); err != nil {
		i.obs.IncCounter("plant_store_errors_total", 1)
		i.obs.LogError("store insert rolled back", err, ports.Field{Key: "timestamp", Value: r.Timestamp})
		return Failed
	}

	if i.live != nil {
		i.live.Add(domain.LivePoint{
			Timestamp:   r.Timestamp,
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
		})
	}

	i.obs.IncCounter("plant_readings_ingested_total", 1)
	i.obs.ObserveLatency("plant_ingest_commit_latency_seconds", time.Since(start).Seconds())
	i.obs.LogInfo("reading committed",
		ports.Field{Key: "timestamp", Value: r.Timestamp},
		ports.Field{Key: "path", Value: path})
	return Committed
}

func (i *Ingestor) handleAuxiliary(payload []byte, topic string) {
	var body struct {
		Value     float64 `json:"value"`
		Timestamp string  `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		i.obs.LogDebug("unparseable auxiliary payload", ports.Field{Key: "topic", Value: topic})
		return
	}
	if i.live != nil {
		p := domain.LivePoint{Timestamp: body.Timestamp}
		switch topic {
		case "sensor/moisture":
			p.Moisture = body.Value
		case "sensor/light":
			p.Light = body.Value
		default:
			return
		}
		i.live.Add(p)
	}
	i.obs.LogDebug("auxiliary reading received, not persisted",
		ports.Field{Key: "topic", Value: topic})
}
