package sink

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/mofox-studio/mofoxbus/envelope"
)

// InProcessSink invokes a stored core handler directly, with no
// transport in between. Outgoing handlers are held in a set so several
// adapter instances can subscribe independently.
type InProcessSink struct {
	handler CoreHandler

	mu       sync.RWMutex
	handlers map[uint64]OutgoingHandler
	nextID   uint64
	closed   atomic.Bool
}

// NewInProcessSink wraps handler as the sink's core-side delivery
// target.
func NewInProcessSink(handler CoreHandler) *InProcessSink {
	return &InProcessSink{
		handler:  handler,
		handlers: make(map[uint64]OutgoingHandler),
	}
}

func (s *InProcessSink) Send(ctx context.Context, env envelope.Envelope) error {
	return s.handler(ctx, env)
}

func (s *InProcessSink) SendMany(ctx context.Context, envs []envelope.Envelope) error {
	for _, env := range envs {
		if err := s.handler(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

func (s *InProcessSink) SetOutgoingHandler(handler OutgoingHandler) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	return Subscription{id: id}
}

func (s *InProcessSink) RemoveOutgoingHandler(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, sub.id)
}

// PushOutgoing fans the envelope out to a copy-on-write snapshot of the
// outgoing-handler set, awaiting each in turn. If the set is empty, the
// envelope is dropped with a debug log.
func (s *InProcessSink) PushOutgoing(ctx context.Context, env envelope.Envelope) error {
	s.mu.RLock()
	snapshot := make([]OutgoingHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		snapshot = append(snapshot, h)
	}
	s.mu.RUnlock()

	if len(snapshot) == 0 {
		log.Printf("[mofoxbus] outgoing envelope %s dropped: no handler registered", env.ID())
		return nil
	}
	for _, h := range snapshot {
		if err := h(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

func (s *InProcessSink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	s.handlers = make(map[uint64]OutgoingHandler)
	s.mu.Unlock()
	return nil
}
