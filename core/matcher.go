package core

import (
	"context"

	"github.com/mofox-studio/mofoxbus/envelope"
)

// candidates returns the priority-tier and generic-tier candidate lists
// for the given envelope, snapshotting under the read lock and releasing
// it before any predicate runs (predicates may block or call back into
// the registry).
//
// Priority = event-bucket routes, then type-bucket routes (event first),
// each bucket in insertion order. Generic = routes with neither
// MessageTypes nor EventTypes, in insertion order. Explicit type/event
// bindings must shadow catch-all predicates, so priority is always
// tried first; generic is only consulted if priority yields nothing.
func (reg *Registry) candidates(env envelope.Envelope) (priority, generic []*Route) {
	msgType, hasType := envelope.ExtractSegmentType(env)
	evtType, hasEvt := envelope.EventType(env)

	reg.mu.RLock()
	defer reg.mu.RUnlock()

	if hasEvt {
		priority = append(priority, reg.byEvent[evtType]...)
	}
	if hasType {
		priority = append(priority, reg.byType[msgType]...)
	}
	for _, r := range reg.allRoutes {
		if r.generic() {
			generic = append(generic, r)
		}
	}
	return priority, generic
}

// Match evaluates predicates against the priority tier, then the
// generic tier, deduplicating by route identity, returning the first
// route whose predicate holds. Returns (nil, nil) if nothing matches.
func (reg *Registry) Match(ctx context.Context, env envelope.Envelope) (*Route, error) {
	priority, generic := reg.candidates(env)

	seen := make(map[*Route]struct{}, len(priority)+len(generic))
	for _, r := range priority {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		ok, err := r.Predicate(ctx, env)
		if err != nil {
			return nil, err
		}
		if ok {
			return r, nil
		}
	}
	for _, r := range generic {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		ok, err := r.Predicate(ctx, env)
		if err != nil {
			return nil, err
		}
		if ok {
			return r, nil
		}
	}
	return nil, nil
}
