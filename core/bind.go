package core

import "sync"

// RouteSpec describes one route to register against a constructed
// receiver, for use with Bind. It mirrors the fields of Route minus the
// handler's binding: Handler is expected to already be a bound method
// value (e.g. svc.OnText) captured after the receiver was constructed.
type RouteSpec struct {
	Predicate Predicate
	Handler   Handler
	Options   []RouteOption
}

// Unbinder releases the bookkeeping Bind performed for a given owner, so
// the owner may later be bound again (e.g. in a test that constructs
// many instances of the same type).
type Unbinder struct {
	owner any
}

var boundOwners sync.Map // map[any]struct{}, keyed by receiver pointer identity

// Bind registers every spec in specs against runtime, on behalf of
// owner. It is the explicit, reflection-free analogue of the teacher
// language's descriptor-based deferred registration (spec.md §4.4/§9):
// because Go receivers already exist by the time their methods can be
// taken as bound method values, there is no need to defer registration
// until construction — the caller simply calls Bind from its own
// constructor, after `owner` is fully built.
//
// Bind is idempotent per owner pointer identity: calling it twice with
// the same owner is a no-op on the second call, the Go analogue of the
// original's weak-referenced already-registered set (using explicit
// identity instead of a garbage-collected weak reference, per spec.md's
// systems-language guidance).
func Bind(owner any, runtime *Runtime, specs ...RouteSpec) (*Unbinder, error) {
	if _, already := boundOwners.Load(owner); already {
		return &Unbinder{owner: owner}, nil
	}
	for _, spec := range specs {
		if _, err := runtime.AddRoute(spec.Predicate, spec.Handler, spec.Options...); err != nil {
			return nil, err
		}
	}
	boundOwners.Store(owner, struct{}{})
	return &Unbinder{owner: owner}, nil
}

// Unbind forgets that owner was bound, allowing a future Bind call for
// the same owner to take effect again. It does not remove the routes
// already registered with the runtime — spec.md's routes have no
// removal API (§3 "Routes live for the life of the runtime").
func (u *Unbinder) Unbind() {
	if u == nil {
		return
	}
	boundOwners.Delete(u.owner)
}
