package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/christianJames24/IoT-2/internal/app/aggregator"
	"github.com/christianJames24/IoT-2/internal/domain"
	"github.com/christianJames24/IoT-2/internal/ports"
)

// Config tunes the edge loop.
type Config struct {
	SampleInterval time.Duration
	Window         int
	PublishTimeout time.Duration
	DrainDelay     time.Duration
	Topic          string
	ControlTopics  []string
}

func (c *Config) applyDefaults() {
	if c.SampleInterval <= 0 {
		c.SampleInterval = 30 * time.Second
	}
	if c.Window <= 0 {
		c.Window = 5
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	if c.DrainDelay <= 0 {
		c.DrainDelay = time.Second
	}
	if c.Topic == "" {
		c.Topic = "sensor/temphum"
	}
}

// Publisher owns the edge side of the pipeline: sample, aggregate, persist
// offline, publish, and drain the offline queue on every (re)connection.
// One goroutine runs the whole loop; transport callbacks only feed the
// event and message channels it selects on.
type Publisher struct {
	cfg       Config
	source    ports.SampleSource
	agg       *aggregator.Aggregator
	offline   ports.OfflineStore
	transport ports.Transport
	obs       ports.Observability
	state     ports.ConnState
}

func New(cfg Config, source ports.SampleSource, offline ports.OfflineStore, transport ports.Transport, obs ports.Observability) *Publisher {
	cfg.applyDefaults()
	return &Publisher{
		cfg:       cfg,
		source:    source,
		agg:       aggregator.New(cfg.Window),
		offline:   offline,
		transport: transport,
		obs:       obs,
	}
}

// Run blocks until ctx is cancelled. After cancellation no new offline
// records are created; any in-flight publish finishes within its own
// bounded timeout.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.obs.LogInfo("publisher stopped")
			return nil
		case ev := <-p.transport.Events():
			p.handleEvent(ctx, ev)
		case msg := <-p.transport.Messages():
			p.handleControl(msg)
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Publisher) handleEvent(ctx context.Context, ev ports.ConnEvent) {
	prev := p.state
	p.state = ev.State

	switch ev.State {
	case ports.Connected:
		p.obs.LogInfo("broker connected")
		if len(p.cfg.ControlTopics) > 0 {
			subCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
			err := p.transport.Subscribe(subCtx, p.cfg.ControlTopics...)
			cancel()
			if err != nil {
				p.obs.LogError("control subscribe failed", err)
			}
		}
		p.drainOffline(ctx)
	case ports.Connecting:
		if ev.Err != nil {
			p.obs.LogError("broker connect attempt failed", ev.Err)
		}
	default:
		if prev == ports.Connected {
			p.obs.LogError("broker disconnected", ev.Err)
		}
	}
}

// handleControl reacts to control-channel messages. Actuation itself (LED,
// pumps) is hardware glue outside this pipeline, so the command is only
// surfaced here.
func (p *Publisher) handleControl(msg ports.InboundMessage) {
	p.obs.LogInfo("control message",
		ports.Field{Key: "topic", Value: msg.Topic},
		ports.Field{Key: "payload", Value: string(msg.Payload)})
}

// cycle runs one sampling step: read, aggregate, and if a window completed,
// persist the reading and attempt a live publish.
func (p *Publisher) cycle(ctx context.Context) {
	samples, err := p.source.Sample(ctx)
	if err != nil {
		// Transient driver failure: skip, keep the window intact.
		p.obs.IncCounter("plant_sensor_read_failures_total", 1)
		p.obs.LogError("sensor read failed", err)
		return
	}
	p.obs.IncCounter("plant_samples_read_total", 1)

	temperature, humidity, ok := splitSamples(samples)
	if !ok {
		p.obs.LogError("sensor sample incomplete", fmt.Errorf("got %d values", len(samples)))
		return
	}

	reading, done := p.agg.Observe(temperature, humidity)
	if !done {
		return
	}
	p.obs.IncCounter("plant_readings_aggregated_total", 1)

	// Persist before any transport attempt. This is the data-loss backstop:
	// a failure here is fatal to the cycle and must be loud.
	if _, err := p.offline.Enqueue(reading); err != nil {
		p.obs.LogCritical("offline persist failed", err,
			ports.Field{Key: "timestamp", Value: reading.Timestamp})
		return
	}
	p.obs.IncCounter("plant_offline_enqueued_total", 1)
	p.updatePendingGauge()

	// Best-effort live publish. The record stays queued either way; the
	// next drain cycle confirms delivery and removes it, and the hub
	// deduplicates the overlap by timestamp.
	payload, err := json.Marshal(reading)
	if err != nil {
		p.obs.LogError("reading marshal failed", err)
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()
	p.obs.IncCounter("plant_publish_attempts_total", 1)
	if err := p.transport.Publish(pubCtx, p.cfg.Topic, payload); err != nil {
		p.obs.IncCounter("plant_publish_failures_total", 1)
		p.obs.LogError("live publish failed", err,
			ports.Field{Key: "timestamp", Value: reading.Timestamp})
		return
	}
	p.obs.LogInfo("published reading",
		ports.Field{Key: "timestamp", Value: reading.Timestamp},
		ports.Field{Key: "temperature", Value: reading.Temperature},
		ports.Field{Key: "humidity", Value: reading.Humidity})
}

// drainOffline delivers pending records oldest-first, removing each only
// after the broker accepts it. The first failure stops the drain so order
// is preserved; it resumes on the next successful connection.
func (p *Publisher) drainOffline(ctx context.Context) {
	var drained int
	err := p.offline.Drain(func(rec ports.OfflineRecord, r domain.AveragedReading) error {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("drain marshal %s: %w", rec.Name, err)
		}

		pubCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
		err = p.transport.Publish(pubCtx, p.cfg.Topic, payload)
		cancel()
		p.obs.IncCounter("plant_publish_attempts_total", 1)
		if err != nil {
			p.obs.IncCounter("plant_publish_failures_total", 1)
			return err
		}

		if err := p.offline.Remove(rec); err != nil {
			return fmt.Errorf("drain remove %s: %w", rec.Name, err)
		}
		drained++
		p.obs.IncCounter("plant_offline_drained_total", 1)

		// Pace the drain so the broker is not flooded after a long outage.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.DrainDelay):
		}
		return nil
	})
	if err != nil {
		p.obs.LogError("offline drain interrupted", err,
			ports.Field{Key: "drained", Value: drained})
	} else if drained > 0 {
		p.obs.LogInfo("offline drain complete", ports.Field{Key: "drained", Value: drained})
	}
	p.updatePendingGauge()
}

func (p *Publisher) updatePendingGauge() {
	if n, err := p.offline.Len(); err == nil {
		p.obs.SetGauge("plant_offline_pending", float64(n))
	}
}

func splitSamples(samples []domain.RawSample) (temperature, humidity float64, ok bool) {
	var haveT, haveH bool
	for _, s := range samples {
		switch s.Kind {
		case domain.SensorTemperature:
			temperature, haveT = s.Value, true
		case domain.SensorHumidity:
			humidity, haveH = s.Value, true
		}
	}
	return temperature, humidity, haveT && haveH
}
