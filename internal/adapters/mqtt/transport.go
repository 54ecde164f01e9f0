package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/christianJames24/IoT-2/internal/ports"
)

// Topic names shared by the edge and the hub.
const (
	TopicTempHum  = "sensor/temphum"
	TopicMoisture = "sensor/moisture"
	TopicLight    = "sensor/light"
	TopicLED      = "sensor/led"
)

// Config holds broker connection details.
type Config struct {
	BrokerURL string
	ClientID  string
	KeepAlive uint16
}

func (c *Config) applyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "plant-" + uuid.NewString()[:8]
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 60
	}
}

// Client is the broker transport. Reconnect and backoff live inside
// autopaho; this adapter only turns connection callbacks into channel
// events so the pipeline loops never run business logic on paho's
// callback goroutines.
type Client struct {
	cm       *autopaho.ConnectionManager
	log      *slog.Logger
	events   chan ports.ConnEvent
	messages chan ports.InboundMessage
}

// Connect starts the connection manager. It returns immediately; the first
// Connected event arrives on Events once the broker accepts us.
func Connect(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}

	u, err := url.Parse(cfg.BrokerURL)
	if err != nil {
		return nil, fmt.Errorf("broker url: %w", err)
	}

	c := &Client{
		log:      log,
		events:   make(chan ports.ConnEvent, 16),
		messages: make(chan ports.InboundMessage, 64),
	}

	pcfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		KeepAlive:                     cfg.KeepAlive,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         0,
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			c.post(ports.ConnEvent{State: ports.Connected})
		},
		OnConnectError: func(err error) {
			c.post(ports.ConnEvent{State: ports.Connecting, Err: err})
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					c.deliver(pr.Packet.Topic, pr.Packet.Payload)
					return true, nil
				},
			},
			OnServerDisconnect: func(_ *paho.Disconnect) {
				c.post(ports.ConnEvent{State: ports.Disconnected})
			},
			OnClientError: func(err error) {
				c.post(ports.ConnEvent{State: ports.Disconnected, Err: err})
			},
		},
	}

	cm, err := autopaho.NewConnection(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	c.cm = cm
	return c, nil
}

// AwaitConnection blocks until the broker accepts the connection or ctx
// expires. Handy for tests and startup probes; the pipelines themselves
// react to Events instead.
func (c *Client) AwaitConnection(ctx context.Context) error {
	return c.cm.AwaitConnection(ctx)
}

func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	_, err := c.cm.Publish(ctx, &paho.Publish{
		QoS:     0,
		Topic:   topic,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Subscribe(ctx context.Context, topics ...string) error {
	subs := make([]paho.SubscribeOptions, 0, len(topics))
	for _, t := range topics {
		subs = append(subs, paho.SubscribeOptions{Topic: t, QoS: 0})
	}
	if _, err := c.cm.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (c *Client) Events() <-chan ports.ConnEvent { return c.events }

func (c *Client) Messages() <-chan ports.InboundMessage { return c.messages }

func (c *Client) Close(ctx context.Context) error {
	if c.cm == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.cm.Disconnect(ctx)
}

// post never blocks a paho callback; if the consumer has fallen far enough
// behind to fill the buffer, the stale event is dropped and logged.
func (c *Client) post(ev ports.ConnEvent) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("mqtt event dropped", slog.String("state", ev.State.String()))
	}
}

func (c *Client) deliver(topic string, payload []byte) {
	body := make([]byte, len(payload))
	copy(body, payload)
	select {
	case c.messages <- ports.InboundMessage{Topic: topic, Payload: body}:
	default:
		c.log.Warn("mqtt message dropped", slog.String("topic", topic))
	}
}

var _ ports.Transport = (*Client)(nil)
