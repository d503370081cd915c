package core

import (
	"sync"
)

// Registry holds routes and the indices the matcher consults. It is
// safe for concurrent use: AddRoute and matcher snapshots are
// synchronized under the same lock (grounded on the teacher's
// Router.mu sync.RWMutex guarding route mutation and Start's snapshot).
type Registry struct {
	mu             sync.RWMutex
	allRoutes      []*Route
	byType         map[string][]*Route
	byEvent        map[string][]*Route
	explicitOwners map[string]string
}

// NewRegistry returns an empty route registry.
func NewRegistry() *Registry {
	return &Registry{
		byType:         make(map[string][]*Route),
		byEvent:        make(map[string][]*Route),
		explicitOwners: make(map[string]string),
	}
}

// AddRoute registers predicate+handler under the given options. Returns
// a *ConfigurationError, and leaves the registry unchanged, if any
// explicit message type in opts is already owned by a previous route.
func (reg *Registry) AddRoute(predicate Predicate, handler Handler, opts ...RouteOption) (*Route, error) {
	route := &Route{Predicate: predicate, Handler: handler}
	for _, opt := range opts {
		opt(route)
	}
	if route.Name == "" {
		route.Name = "<anonymous>"
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if route.explicit() {
		for t := range route.MessageTypes {
			if owner, ok := reg.explicitOwners[t]; ok {
				return nil, newConfigurationError(
					"message type %q already registered by handler %q; cannot register %q",
					t, owner, route.Name,
				)
			}
		}
		for t := range route.MessageTypes {
			reg.explicitOwners[t] = route.Name
		}
	}

	reg.allRoutes = append(reg.allRoutes, route)
	for t := range route.MessageTypes {
		reg.byType[t] = append(reg.byType[t], route)
	}
	for t := range route.EventTypes {
		reg.byEvent[t] = append(reg.byEvent[t], route)
	}
	return route, nil
}

// Routes returns a snapshot of all registered routes in insertion order.
func (reg *Registry) Routes() []*Route {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Route, len(reg.allRoutes))
	copy(out, reg.allRoutes)
	return out
}
