package ports

import "context"

// ConnState is the broker connection state as seen by the edge loop.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Connecting:
		return "connecting"
	default:
		return "disconnected"
	}
}

// ConnEvent is posted on the transport's event channel whenever the
// connection state changes. Reconnect/backoff belongs to the transport;
// consumers only react to these events.
type ConnEvent struct {
	State ConnState
	Err   error
}

// InboundMessage is one delivery from a subscribed topic.
type InboundMessage struct {
	Topic   string
	Payload []byte
}

// Transport is the pub/sub link to the broker. Delivery is at-most-once
// (QoS 0); the pipeline's at-least-once guarantee comes from the
// OfflineStore, not from here.
type Transport interface {
	// Publish sends one payload. The context bounds the attempt so a hung
	// broker cannot stall the caller beyond its deadline.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers interest in topics; deliveries arrive on Messages.
	Subscribe(ctx context.Context, topics ...string) error

	// Events reports connection state changes.
	Events() <-chan ConnEvent

	// Messages carries inbound deliveries for subscribed topics.
	Messages() <-chan InboundMessage

	// Close releases the connection.
	Close(ctx context.Context) error
}
