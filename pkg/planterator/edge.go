package planterator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/christianJames24/IoT-2/internal/adapters/mqtt"
	"github.com/christianJames24/IoT-2/internal/adapters/observability"
	"github.com/christianJames24/IoT-2/internal/adapters/offline"
	"github.com/christianJames24/IoT-2/internal/adapters/sensor"
	"github.com/christianJames24/IoT-2/internal/app/config"
	"github.com/christianJames24/IoT-2/internal/app/publisher"
	"github.com/christianJames24/IoT-2/internal/ports"
)

// EdgeOption overrides one of the edge runtime's default dependencies, so
// tests and embedders can inject their own transport, source, or store
// instead of reaching for process-wide globals.
type EdgeOption func(*edgeOverrides)

type edgeOverrides struct {
	source    ports.SampleSource
	offline   ports.OfflineStore
	transport ports.Transport
	obs       ports.Observability
}

func WithSource(s ports.SampleSource) EdgeOption {
	return func(o *edgeOverrides) { o.source = s }
}

func WithOfflineStore(s ports.OfflineStore) EdgeOption {
	return func(o *edgeOverrides) { o.offline = s }
}

func WithEdgeTransport(t ports.Transport) EdgeOption {
	return func(o *edgeOverrides) { o.transport = t }
}

func WithEdgeObservability(obs ports.Observability) EdgeOption {
	return func(o *edgeOverrides) { o.obs = obs }
}

// EdgeRuntime wires source → aggregator → offline store → MQTT publisher.
type EdgeRuntime struct {
	cfg       *config.Config
	overrides edgeOverrides
}

func NewEdgeRuntime(cfg *config.Config, opts ...EdgeOption) (*EdgeRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	e := &EdgeRuntime{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(&e.overrides)
		}
	}
	return e, nil
}

// Run blocks until ctx is cancelled, then shuts the transport and metrics
// server down.
func (e *EdgeRuntime) Run(ctx context.Context) error {
	obs := e.overrides.obs
	if obs == nil {
		obs = observability.NewPromObs(slog.Default())
	}

	offlineStore := e.overrides.offline
	if offlineStore == nil {
		fs, err := offline.NewFileStore(e.cfg.Edge.OfflineDir)
		if err != nil {
			return fmt.Errorf("offline store: %w", err)
		}
		offlineStore = fs
	}

	source := e.overrides.source
	if source == nil {
		if !e.cfg.Edge.SimulateSensor {
			return fmt.Errorf("no sensor source configured: set edge.simulate_sensor or inject one with WithSource")
		}
		source = sensor.NewSimSource(time.Now().UnixNano())
	}

	transport := e.overrides.transport
	if transport == nil {
		t, err := mqtt.Connect(ctx, mqtt.Config{
			BrokerURL: e.cfg.MQTT.BrokerURL,
			ClientID:  e.cfg.MQTT.ClientID,
			KeepAlive: e.cfg.MQTT.KeepAlive,
		}, slog.Default())
		if err != nil {
			return fmt.Errorf("mqtt transport: %w", err)
		}
		transport = t
	}

	metrics := startMetrics(e.cfg.Metrics.Addr, slog.Default())
	go recordResourceGauges(ctx, time.Second, func() {
		if n, err := offlineStore.Len(); err == nil {
			obs.SetGauge("plant_offline_pending", float64(n))
		}
	})

	pub := publisher.New(publisher.Config{
		SampleInterval: e.cfg.Edge.SampleInterval,
		Window:         e.cfg.Edge.Window,
		PublishTimeout: e.cfg.Edge.PublishTimeout,
		DrainDelay:     e.cfg.Edge.DrainDelay,
		Topic:          mqtt.TopicTempHum,
		ControlTopics:  []string{mqtt.TopicLED},
	}, source, offlineStore, transport, obs)

	runErr := pub.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return errors.Join(
		runErr,
		transport.Close(shutdownCtx),
		stopMetrics(shutdownCtx, metrics),
	)
}
