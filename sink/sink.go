// Package sink implements the bidirectional channels between platform
// adapters and the core runtime: an in-process sink for same-process
// wiring, and a cross-process queue sink for adapters running in a
// separate process or behind a real message broker.
package sink

import (
	"context"

	"github.com/mofox-studio/mofoxbus/envelope"
)

// OutgoingHandler receives envelopes the core produced for delivery back
// to a platform.
type OutgoingHandler func(ctx context.Context, env envelope.Envelope) error

// CoreHandler receives envelopes an adapter produced for the core to
// dispatch, typically a thin wrapper around core.Runtime.HandleMessage
// that discards the response envelope.
type CoreHandler func(ctx context.Context, env envelope.Envelope) error

// Subscription identifies a previously registered OutgoingHandler so it
// can be removed later. Go function values aren't comparable, so
// SetOutgoingHandler hands back an opaque token in place of the
// original language's "remove by callback reference" — functionally
// the same set-valued registration spec.md describes, expressed with a
// handle instead of identity comparison.
type Subscription struct{ id uint64 }

// CoreSink is the bidirectional channel between one adapter and the
// core. Send/SendMany carry adapter→core traffic; the outgoing-handler
// trio and PushOutgoing carry core→adapter traffic.
type CoreSink interface {
	// Send delivers a single adapter-originated envelope to the core.
	Send(ctx context.Context, env envelope.Envelope) error

	// SendMany delivers a batch of adapter-originated envelopes.
	SendMany(ctx context.Context, envs []envelope.Envelope) error

	// SetOutgoingHandler registers a callback invoked for every envelope
	// the core pushes toward this sink's adapter side. InProcessSink keeps
	// every registered handler, so multiple adapters may subscribe
	// independently; QueueSink and BrokerQueueSink keep only the most
	// recently registered one.
	SetOutgoingHandler(handler OutgoingHandler) Subscription

	// RemoveOutgoingHandler unregisters a previously registered handler.
	RemoveOutgoingHandler(sub Subscription)

	// PushOutgoing delivers a core-originated envelope toward the
	// adapter side.
	PushOutgoing(ctx context.Context, env envelope.Envelope) error

	// Close releases any resources (background listeners, queue
	// connections) held by the sink. Idempotent.
	Close() error
}
