package planterator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/christianJames24/IoT-2/internal/adapters/dailylog"
	"github.com/christianJames24/IoT-2/internal/adapters/livecache"
	"github.com/christianJames24/IoT-2/internal/adapters/mqtt"
	"github.com/christianJames24/IoT-2/internal/adapters/observability"
	"github.com/christianJames24/IoT-2/internal/adapters/sqlstore"
	"github.com/christianJames24/IoT-2/internal/app/config"
	"github.com/christianJames24/IoT-2/internal/app/ingest"
	"github.com/christianJames24/IoT-2/internal/domain"
	"github.com/christianJames24/IoT-2/internal/ports"
)

// HubOption overrides one of the hub runtime's default dependencies.
type HubOption func(*hubOverrides)

type hubOverrides struct {
	store     ports.ReadingStore
	daily     ports.DailyLog
	transport ports.Transport
	obs       ports.Observability
}

func WithStore(s ports.ReadingStore) HubOption {
	return func(o *hubOverrides) { o.store = s }
}

func WithDailyLog(d ports.DailyLog) HubOption {
	return func(o *hubOverrides) { o.daily = d }
}

func WithHubTransport(t ports.Transport) HubOption {
	return func(o *hubOverrides) { o.transport = t }
}

func WithHubObservability(obs ports.Observability) HubOption {
	return func(o *hubOverrides) { o.obs = obs }
}

// HubRuntime subscribes to the sensor topics, deduplicates deliveries, and
// commits accepted readings to the durable store plus the daily log. It
// also owns the bounded live view consumed by the reporting surface.
type HubRuntime struct {
	cfg       *config.Config
	overrides hubOverrides
	live      *livecache.Ring
	store     ports.ReadingStore
}

func NewHubRuntime(cfg *config.Config, opts ...HubOption) (*HubRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	h := &HubRuntime{
		cfg:  cfg,
		live: livecache.NewRing(cfg.Hub.LiveCacheCap),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&h.overrides)
		}
	}
	return h, nil
}

// Live returns a copied snapshot of the in-memory time series since start.
func (h *HubRuntime) Live() []domain.LivePoint {
	return h.live.Snapshot()
}

// Recent returns the most recent limit persisted readings, newest first.
func (h *HubRuntime) Recent(ctx context.Context, limit int) ([]domain.SensorReading, error) {
	if h.store == nil {
		return nil, fmt.Errorf("hub not running")
	}
	return h.store.RecentReadings(ctx, limit)
}

// Run blocks until ctx is cancelled. Each delivery is handled serially so
// the duplicate-check-then-insert sequence stays atomic.
func (h *HubRuntime) Run(ctx context.Context) error {
	obs := h.overrides.obs
	if obs == nil {
		obs = observability.NewPromObs(slog.Default())
	}

	store := h.overrides.store
	var ownedStore *sqlstore.Store
	if store == nil {
		// Opening durable storage is the one startup step allowed to be
		// fatal.
		s, err := sqlstore.Open(ctx, h.cfg.Hub.StoreDriver, h.cfg.Hub.StoreDSN)
		if err != nil {
			return fmt.Errorf("durable store: %w", err)
		}
		ownedStore = s
		store = s
	}
	h.store = store

	daily := h.overrides.daily
	if daily == nil {
		d, err := dailylog.NewFileLog(h.cfg.Hub.DailyDir)
		if err != nil {
			return fmt.Errorf("daily log: %w", err)
		}
		daily = d
	}

	ingestor, err := ingest.New(ingest.Config{
		Timezone:     h.cfg.Hub.Timezone,
		StoreTimeout: h.cfg.Hub.StoreTimeout,
	}, store, daily, h.live, obs)
	if err != nil {
		return err
	}

	transport := h.overrides.transport
	if transport == nil {
		t, terr := mqtt.Connect(ctx, mqtt.Config{
			BrokerURL: h.cfg.MQTT.BrokerURL,
			ClientID:  h.cfg.MQTT.ClientID,
			KeepAlive: h.cfg.MQTT.KeepAlive,
		}, slog.Default())
		if terr != nil {
			return fmt.Errorf("mqtt transport: %w", terr)
		}
		transport = t
	}

	metrics := startMetrics(h.cfg.Metrics.Addr, slog.Default())
	go recordResourceGauges(ctx, time.Second, func() {
		obs.SetGauge("plant_live_points", float64(h.live.Len()))
	})

	runErr := h.loop(ctx, transport, ingestor, obs)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var closeErr error
	if ownedStore != nil {
		closeErr = ownedStore.Close()
	}
	return errors.Join(
		runErr,
		transport.Close(shutdownCtx),
		stopMetrics(shutdownCtx, metrics),
		closeErr,
	)
}

// loop owns all hub-side event handling in one goroutine: it resubscribes
// on every (re)connection and feeds deliveries to the ingestor one at a
// time.
func (h *HubRuntime) loop(ctx context.Context, transport ports.Transport, ingestor *ingest.Ingestor, obs ports.Observability) error {
	topics := []string{mqtt.TopicTempHum, mqtt.TopicMoisture, mqtt.TopicLight}

	for {
		select {
		case <-ctx.Done():
			obs.LogInfo("hub stopped")
			return nil
		case ev := <-transport.Events():
			switch ev.State {
			case ports.Connected:
				obs.LogInfo("broker connected, subscribing", ports.Field{Key: "topics", Value: topics})
				subCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				err := transport.Subscribe(subCtx, topics...)
				cancel()
				if err != nil {
					obs.LogError("subscribe failed", err)
				}
			case ports.Connecting:
				if ev.Err != nil {
					obs.LogError("broker connect attempt failed", ev.Err)
				}
			default:
				obs.LogError("broker disconnected", ev.Err)
			}
		case msg := <-transport.Messages():
			ingestor.OnDelivery(ctx, msg.Payload, msg.Topic)
		}
	}
}
