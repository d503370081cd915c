// Package router maintains one outbound client per configured
// platform, forwards outgoing envelopes to the right client, and
// reconciles live configuration changes.
package router

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/mofox-studio/mofoxbus/envelope"
	"github.com/mofox-studio/mofoxbus/sink"
)

// Router owns the live set of per-platform clients and the route
// configuration they were built from.
type Router struct {
	mu      sync.Mutex
	config  RouteConfig
	clients map[string]*Client
	running bool

	handlers []sink.OutgoingHandler
	log      *slog.Logger
}

// RouterOption configures a Router at construction time.
type RouterOption func(*Router)

// WithClientHandlers attaches a forwarding list every client created by
// this router will invoke for inbound frames.
func WithClientHandlers(handlers ...sink.OutgoingHandler) RouterOption {
	return func(r *Router) { r.handlers = handlers }
}

// WithRouterLogger overrides the default slog logger.
func WithRouterLogger(log *slog.Logger) RouterOption {
	return func(r *Router) { r.log = log }
}

// NewRouter returns an empty Router with no connected platforms.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		config:  RouteConfig{Targets: map[string]TargetConfig{}},
		clients: make(map[string]*Client),
		running: true,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect instantiates and starts a client for platform, using the
// currently installed configuration. Returns ConfigurationError for an
// unknown platform or an unparsable URL, and ErrTCPUnsupported for a
// tcp-scheme target.
func (r *Router) Connect(ctx context.Context, platform string) error {
	r.mu.Lock()
	target, ok := r.config.Targets[platform]
	r.mu.Unlock()
	if !ok {
		return newConfigurationError("unknown platform: " + platform)
	}

	u, err := url.Parse(target.URL)
	if err != nil {
		return newConfigurationError("invalid target url for platform " + platform + ": " + err.Error())
	}
	if u.Scheme == "tcp" {
		return ErrTCPUnsupported
	}

	client := newClient(platform, target, r.handlers, r.log)
	if err := client.start(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.clients[platform] = client
	r.mu.Unlock()
	return nil
}

// GetTargetURL returns the configured URL for env's platform, if any.
func (r *Router) GetTargetURL(env envelope.Envelope) (string, bool) {
	platform, ok := envelope.Platform(env)
	if !ok {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.config.Targets[platform]
	if !ok {
		return "", false
	}
	return target.URL, true
}

// SendMessage forwards env to the client for its platform.
func (r *Router) SendMessage(ctx context.Context, env envelope.Envelope) error {
	platform, ok := envelope.Platform(env)
	if !ok {
		return newConfigurationError("envelope is missing message_info.platform")
	}
	r.mu.Lock()
	client, ok := r.clients[platform]
	r.mu.Unlock()
	if !ok {
		return ErrNoClient
	}
	return client.send(ctx, env)
}

// UpdateConfig diffs newConfig against the installed configuration,
// disconnecting removed/changed platforms, installing the new
// configuration, then connecting added/changed platforms.
func (r *Router) UpdateConfig(ctx context.Context, newConfig map[string]any) error {
	parsed, err := RouteConfigFromMap(newConfig)
	if err != nil {
		return err
	}

	r.mu.Lock()
	old := r.config
	r.mu.Unlock()

	added, removed, changed := diffTargets(old.Targets, parsed.Targets)

	for _, platform := range append(append([]string{}, removed...), changed...) {
		if err := r.RemovePlatform(ctx, platform); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.config = parsed
	r.mu.Unlock()

	for _, platform := range append(append([]string{}, added...), changed...) {
		if err := r.Connect(ctx, platform); err != nil {
			return err
		}
	}
	return nil
}

func diffTargets(oldTargets, newTargets map[string]TargetConfig) (added, removed, changed []string) {
	for platform := range newTargets {
		if _, ok := oldTargets[platform]; !ok {
			added = append(added, platform)
		}
	}
	for platform := range oldTargets {
		if _, ok := newTargets[platform]; !ok {
			removed = append(removed, platform)
		}
	}
	for platform, oldTarget := range oldTargets {
		if newTarget, ok := newTargets[platform]; ok && newTarget.URL != oldTarget.URL {
			changed = append(changed, platform)
		}
	}
	return added, removed, changed
}

// RemovePlatform stops the client for platform, if any, and forgets it.
// Idempotent on an already-absent platform.
func (r *Router) RemovePlatform(ctx context.Context, platform string) error {
	r.mu.Lock()
	client, ok := r.clients[platform]
	delete(r.clients, platform)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return client.stop()
}

// Stop removes every connected platform and marks the router not
// running. Idempotent: calling Stop twice leaves clients empty and
// running false without error.
func (r *Router) Stop(ctx context.Context) error {
	r.mu.Lock()
	platforms := make([]string, 0, len(r.clients))
	for platform := range r.clients {
		platforms = append(platforms, platform)
	}
	r.mu.Unlock()

	for _, platform := range platforms {
		if err := r.RemovePlatform(ctx, platform); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

// Running reports whether Stop has not yet been called.
func (r *Router) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Clients returns the set of currently connected platforms.
func (r *Router) Clients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.clients))
	for platform := range r.clients {
		out = append(out, platform)
	}
	return out
}
