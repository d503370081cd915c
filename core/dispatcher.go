package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mofox-studio/mofoxbus/envelope"
)

// MiddlewareFunc is the onion-model wrapper around a Handler: it
// receives the envelope and the next handler in the chain and must
// itself invoke next to continue the chain.
type MiddlewareFunc func(next Handler) Handler

// Runtime orchestrates before-hooks, route matching, the middleware
// chain, the matched handler, after-hooks, and error-hooks. It is the
// Go analogue of the teacher's Router, generalized from topic
// subscriptions to envelope dispatch.
type Runtime struct {
	registry     *Registry
	middlewares  []MiddlewareFunc
	beforeHooks  []Hook
	afterHooks   []Hook
	errorHooks   []ErrorHook
	batchHandler BatchHandler
}

// NewRuntime creates a Runtime backed by a fresh route registry.
func NewRuntime() *Runtime {
	return &Runtime{registry: NewRegistry()}
}

// Registry exposes the underlying route registry, e.g. for Bind.
func (rt *Runtime) Registry() *Registry { return rt.registry }

// AddRoute registers a route. See Registry.AddRoute.
func (rt *Runtime) AddRoute(predicate Predicate, handler Handler, opts ...RouteOption) (*Route, error) {
	return rt.registry.AddRoute(predicate, handler, opts...)
}

// Use registers global middleware. Middleware composes as an onion:
// the first registered middleware is outermost, matching the teacher's
// applyMiddleware (reverse registration order wrapping).
func (rt *Runtime) Use(mw MiddlewareFunc) {
	rt.middlewares = append(rt.middlewares, mw)
}

// RegisterBeforeHook adds a hook run (concurrently with its peers)
// before every dispatch.
func (rt *Runtime) RegisterBeforeHook(h Hook) { rt.beforeHooks = append(rt.beforeHooks, h) }

// RegisterAfterHook adds a hook run (concurrently with its peers) after
// every successful dispatch.
func (rt *Runtime) RegisterAfterHook(h Hook) { rt.afterHooks = append(rt.afterHooks, h) }

// RegisterErrorHook adds a hook run (concurrently with its peers) when a
// dispatch's predicate, middleware, or handler raises.
func (rt *Runtime) RegisterErrorHook(h ErrorHook) { rt.errorHooks = append(rt.errorHooks, h) }

// SetBatchHandler overrides HandleBatch's default per-message loop.
func (rt *Runtime) SetBatchHandler(h BatchHandler) { rt.batchHandler = h }

// HandleMessage runs before-hooks, matches a route, runs the middleware
// chain around the matched handler, and on success runs after-hooks. A
// nil match (no route) returns (nil, nil) without running after-hooks
// or error-hooks, per spec.
func (rt *Runtime) HandleMessage(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error) {
	if err := rt.runHooks(ctx, rt.beforeHooks, env); err != nil {
		return nil, &ProcessingError{Envelope: env, Cause: err}
	}

	route, err := rt.registry.Match(ctx, env)
	if err != nil {
		rt.runErrorHooks(ctx, env, err)
		return nil, &ProcessingError{Envelope: env, Cause: err}
	}
	if route == nil {
		return nil, nil
	}

	chain := rt.wrapWithMiddlewares(route.Handler)
	result, err := rt.invokeHandler(ctx, chain, env)
	if err != nil {
		rt.runErrorHooks(ctx, env, err)
		return nil, &ProcessingError{Envelope: env, Cause: err}
	}

	if err := rt.runHooks(ctx, rt.afterHooks, env); err != nil {
		return nil, &ProcessingError{Envelope: env, Cause: err}
	}
	return result, nil
}

// HandleBatch dispatches a batch of envelopes. An empty batch returns
// an empty slice immediately. If a custom batch handler was set via
// SetBatchHandler, it takes over entirely. Otherwise each envelope is
// dispatched serially via HandleMessage, collecting non-nil responses
// in order.
func (rt *Runtime) HandleBatch(ctx context.Context, envs []envelope.Envelope) ([]envelope.Envelope, error) {
	if len(envs) == 0 {
		return nil, nil
	}
	if rt.batchHandler != nil {
		out, err := rt.batchHandler(ctx, envs)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	responses := make([]envelope.Envelope, 0, len(envs))
	for _, env := range envs {
		resp, err := rt.HandleMessage(ctx, env)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			responses = append(responses, resp)
		}
	}
	return responses, nil
}

// wrapWithMiddlewares composes the middleware chain around a base
// invocation of route.Handler, starting from the innermost (the
// handler) and wrapping outward so the first-registered middleware is
// outermost.
func (rt *Runtime) wrapWithMiddlewares(h Handler) Handler {
	wrapped := h
	for i := len(rt.middlewares) - 1; i >= 0; i-- {
		wrapped = rt.middlewares[i](wrapped)
	}
	return wrapped
}

// invokeHandler runs the composed chain on its own goroutine and waits
// for its result; if ctx is done first it returns ctx.Err() without
// waiting for the handler to finish.
func (rt *Runtime) invokeHandler(ctx context.Context, h Handler, env envelope.Envelope) (envelope.Envelope, error) {
	type result struct {
		env envelope.Envelope
		err error
	}
	ch := make(chan result, 1)
	go func() {
		env, err := h(ctx, env)
		ch <- result{env, err}
	}()
	select {
	case r := <-ch:
		return r.env, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runHooks runs every hook concurrently, awaiting all of them before
// returning. The first error encountered is returned after every hook
// has completed.
func (rt *Runtime) runHooks(ctx context.Context, hooks []Hook, env envelope.Envelope) error {
	if len(hooks) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range hooks {
		h := h
		g.Go(func() error { return h(gctx, env) })
	}
	return g.Wait()
}

// runErrorHooks fires every error hook concurrently. Errors from error
// hooks themselves are intentionally swallowed: a broken error hook
// must not mask the original ProcessingError.
func (rt *Runtime) runErrorHooks(ctx context.Context, env envelope.Envelope, cause error) {
	if len(rt.errorHooks) == 0 {
		return
	}
	var g errgroup.Group
	for _, h := range rt.errorHooks {
		h := h
		g.Go(func() error {
			_ = h(ctx, env, cause)
			return nil
		})
	}
	_ = g.Wait()
}
