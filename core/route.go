package core

import (
	"context"

	"github.com/mofox-studio/mofoxbus/envelope"
)

// Predicate decides whether a route should handle a given envelope.
type Predicate func(ctx context.Context, env envelope.Envelope) (bool, error)

// Handler processes a matched envelope and optionally returns a response
// envelope.
type Handler func(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error)

// Hook is a side-effect callback invoked before, after, or around a
// dispatch. It receives the envelope being processed.
type Hook func(ctx context.Context, env envelope.Envelope) error

// ErrorHook is invoked when a dispatch fails, receiving both the
// envelope and the original cause.
type ErrorHook func(ctx context.Context, env envelope.Envelope, cause error) error

// BatchHandler, if set, replaces HandleBatch's default per-message loop.
type BatchHandler func(ctx context.Context, envs []envelope.Envelope) ([]envelope.Envelope, error)

// Route is a predicate-plus-handler registration, optionally scoped to
// explicit message-type and/or event-type tags.
type Route struct {
	Predicate    Predicate
	Handler      Handler
	Name         string
	MessageTypes map[string]struct{}
	EventTypes   map[string]struct{}
}

// explicit reports whether this route carries a non-empty MessageTypes
// set — such a route is matched against the by-type index and is
// subject to the one-owner-per-type uniqueness rule.
func (r *Route) explicit() bool { return len(r.MessageTypes) > 0 }

// generic reports whether this route has neither message types nor
// event types — it only participates in the fallback candidate tier.
func (r *Route) generic() bool { return len(r.MessageTypes) == 0 && len(r.EventTypes) == 0 }

// RouteOption configures a route at registration time.
type RouteOption func(*Route)

// WithName sets the route's display name, used in error messages and
// duplicate-registration diagnostics.
func WithName(name string) RouteOption {
	return func(r *Route) { r.Name = name }
}

// WithMessageType restricts the route to a single explicit message type.
// Passing it more than once, or combined with WithMessageTypes, unions
// the sets.
func WithMessageType(t string) RouteOption {
	return WithMessageTypes(t)
}

// WithMessageTypes restricts the route to one or more explicit message
// types. At most one route may explicitly own any given type.
func WithMessageTypes(types ...string) RouteOption {
	return func(r *Route) {
		if r.MessageTypes == nil {
			r.MessageTypes = make(map[string]struct{}, len(types))
		}
		for _, t := range types {
			r.MessageTypes[t] = struct{}{}
		}
	}
}

// WithEventTypes scopes the route to one or more event-type tags. Unlike
// message types, event types carry no uniqueness constraint.
func WithEventTypes(types ...string) RouteOption {
	return func(r *Route) {
		if r.EventTypes == nil {
			r.EventTypes = make(map[string]struct{}, len(types))
		}
		for _, t := range types {
			r.EventTypes[t] = struct{}{}
		}
	}
}

// WithPlatform scopes the route predicate to envelopes from (or destined
// for) a single platform, composing with any predicate already supplied
// to AddRoute. This mirrors the teacher's on_message(platform=...) sugar.
func WithPlatform(platform string) RouteOption {
	return func(r *Route) {
		inner := r.Predicate
		r.Predicate = func(ctx context.Context, env envelope.Envelope) (bool, error) {
			if p, ok := envelope.Platform(env); ok && p != platform {
				return false, nil
			}
			if inner == nil {
				return true, nil
			}
			return inner(ctx, env)
		}
	}
}
