package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/mofox-studio/mofoxbus/broker"
	"github.com/mofox-studio/mofoxbus/envelope"
)

// brokerMessage adapts a Frame to broker.Message for Publish.
type brokerMessage struct {
	key     []byte
	value   []byte
	headers map[string]string
}

func (m *brokerMessage) Key() []byte                { return m.key }
func (m *brokerMessage) Value() []byte              { return m.value }
func (m *brokerMessage) Headers() map[string]string { return m.headers }
func (m *brokerMessage) Ack() error                 { return nil }
func (m *brokerMessage) Nack() error                { return nil }

func encodeFrame(f Frame) (*brokerMessage, error) {
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("mofoxbus/sink: encode frame: %w", err)
	}
	return &brokerMessage{key: []byte(f.Payload.ID()), value: payload}, nil
}

func decodeFrame(msg broker.Message) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(msg.Value(), &f); err != nil {
		return Frame{}, fmt.Errorf("mofoxbus/sink: decode frame: %w", err)
	}
	return f, nil
}

// BrokerQueueSink is the adapter-side half of the cross-process sink
// protocol, generalising QueueSink to run over a real message broker
// (NATS, Kafka, RabbitMQ) instead of in-memory channels: Send publishes
// to the incoming topic, SetOutgoingHandler subscribes to the outgoing
// topic. Useful when the adapter and the core run in separate processes
// or on separate hosts.
type BrokerQueueSink struct {
	b             broker.Broker
	incomingTopic string
	outgoingTopic string

	mu      sync.Mutex
	handler OutgoingHandler
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
}

// NewBrokerQueueSink returns an adapter-side sink that publishes
// incoming envelopes to incomingTopic and subscribes to outgoingTopic
// for envelopes pushed from the core.
func NewBrokerQueueSink(b broker.Broker, incomingTopic, outgoingTopic string) *BrokerQueueSink {
	return &BrokerQueueSink{b: b, incomingTopic: incomingTopic, outgoingTopic: outgoingTopic}
}

func (s *BrokerQueueSink) Send(ctx context.Context, env envelope.Envelope) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	msg, err := encodeFrame(Frame{Kind: frameIncoming, Payload: env})
	if err != nil {
		return err
	}
	return s.b.Publish(ctx, s.incomingTopic, msg)
}

func (s *BrokerQueueSink) SendMany(ctx context.Context, envs []envelope.Envelope) error {
	for _, env := range envs {
		if err := s.Send(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

// SetOutgoingHandler stores handler and idempotently launches a
// subscription to the outgoing topic if one isn't already running.
func (s *BrokerQueueSink) SetOutgoingHandler(handler OutgoingHandler) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
	if s.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.subscribe(ctx)
	}
	return Subscription{}
}

func (s *BrokerQueueSink) RemoveOutgoingHandler(Subscription) {
	s.mu.Lock()
	s.handler = nil
	s.mu.Unlock()
}

func (s *BrokerQueueSink) subscribe(ctx context.Context) {
	defer close(s.done)
	err := s.b.Subscribe(ctx, s.outgoingTopic, func(ctx context.Context, msg broker.Message) error {
		f, err := decodeFrame(msg)
		if err != nil {
			log.Printf("[mofoxbus] BrokerQueueSink: %v", err)
			return nil
		}
		if f.isStop() {
			return nil
		}
		s.mu.Lock()
		handler := s.handler
		s.mu.Unlock()
		if handler == nil {
			return nil
		}
		return handler(ctx, f.Payload)
	})
	if err != nil && ctx.Err() == nil {
		log.Printf("[mofoxbus] BrokerQueueSink subscription on %q ended: %v", s.outgoingTopic, err)
	}
}

func (s *BrokerQueueSink) PushOutgoing(ctx context.Context, env envelope.Envelope) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	log.Printf("[mofoxbus] BrokerQueueSink.PushOutgoing is a no-op on the adapter side")
	return nil
}

// Close is idempotent: it cancels the outgoing subscription and waits
// for it to finish. The underlying broker connection is owned by the
// caller and is not closed here.
func (s *BrokerQueueSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// BrokerQueueSinkServer is the core-side half of the broker-backed
// cross-process sink protocol: it subscribes to the incoming topic and
// dispatches to a core handler, and publishes outgoing envelopes to the
// outgoing topic.
type BrokerQueueSinkServer struct {
	b             broker.Broker
	incomingTopic string
	outgoingTopic string
	coreHandler   CoreHandler

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewBrokerQueueSinkServer returns a core-side server subscribing to
// incomingTopic and publishing to outgoingTopic.
func NewBrokerQueueSinkServer(b broker.Broker, incomingTopic, outgoingTopic string, coreHandler CoreHandler) *BrokerQueueSinkServer {
	return &BrokerQueueSinkServer{b: b, incomingTopic: incomingTopic, outgoingTopic: outgoingTopic, coreHandler: coreHandler}
}

// Start launches the incoming-topic subscription. Calling Start more
// than once is a no-op while a subscription is already running.
func (s *BrokerQueueSinkServer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.subscribe(ctx)
}

func (s *BrokerQueueSinkServer) subscribe(ctx context.Context) {
	defer close(s.done)
	err := s.b.Subscribe(ctx, s.incomingTopic, func(ctx context.Context, msg broker.Message) error {
		f, err := decodeFrame(msg)
		if err != nil {
			log.Printf("[mofoxbus] BrokerQueueSinkServer: %v", err)
			return nil
		}
		if f.isStop() {
			return nil
		}
		return s.coreHandler(ctx, f.Payload)
	})
	if err != nil && ctx.Err() == nil {
		log.Printf("[mofoxbus] BrokerQueueSinkServer subscription on %q ended: %v", s.incomingTopic, err)
	}
}

func (s *BrokerQueueSinkServer) PushOutgoing(ctx context.Context, env envelope.Envelope) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	msg, err := encodeFrame(Frame{Kind: frameOutgoing, Payload: env})
	if err != nil {
		return err
	}
	return s.b.Publish(ctx, s.outgoingTopic, msg)
}

// Close is idempotent: it cancels the incoming subscription and waits
// for it to finish.
func (s *BrokerQueueSinkServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
