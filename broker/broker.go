package broker

import (
	"context"
	"errors"
)

// ErrBrokerClosed is returned by Publish/Subscribe once Close has been
// called on the broker.
var ErrBrokerClosed = errors.New("mofoxbus/broker: broker is closed")

// Message is a single broker-delivered message, abstracting over the
// underlying transport's key/value/headers and ack/nack semantics.
type Message interface {
	Key() []byte
	Value() []byte
	Headers() map[string]string
	Ack() error
	Nack() error
}

// Handler processes one broker Message. An error leaves the message
// unacknowledged, triggering the broker's own redelivery policy.
type Handler func(ctx context.Context, msg Message) error

// Middleware wraps a Handler, e.g. for logging or metrics around broker
// delivery, mirroring the runtime dispatcher's middleware onion composition.
type Middleware func(Handler) Handler

// Broker is the cross-process transport the sink.BrokerQueueSink/
// BrokerQueueSinkServer pair runs over (the channel-backed
// sink.QueueSink/QueueSinkServer pair does not use it), letting adapter
// processes and a core process exchange envelopes through NATS, Kafka,
// or RabbitMQ. Topic is the broker-native subject/queue/routing key.
type Broker interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
