// Package adapter implements the platform-facing half of the bus: a
// reusable base that dials (or serves) a transport, translates raw
// platform messages into envelopes, and bridges outgoing envelopes
// from the core back onto the platform.
package adapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mofox-studio/mofoxbus/envelope"
	"github.com/mofox-studio/mofoxbus/sink"
)

// FromPlatformMessage converts a raw platform message (as produced by
// the configured IncomingParser, or an HTTP request body) into an
// envelope. Subclasses in the original design supplied this as an
// abstract method; here it is a required constructor argument.
type FromPlatformMessage func(raw any) (envelope.Envelope, error)

// SendPlatformMessage delivers an envelope to the platform. When a
// WebSocket transport is configured and no override is supplied, Base
// uses its own WebSocket-based implementation.
type SendPlatformMessage func(ctx context.Context, env envelope.Envelope) error

// IncomingParser decodes one inbound WebSocket frame into the raw value
// passed to FromPlatformMessage.
type IncomingParser func(data []byte) (any, error)

// OutgoingEncoder encodes an envelope into one outbound WebSocket frame.
type OutgoingEncoder func(env envelope.Envelope) ([]byte, error)

// WebSocketOptions configures the built-in WebSocket transport.
type WebSocketOptions struct {
	URL                  string
	Header               map[string][]string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int // 0 means unlimited
	IncomingParser       IncomingParser
	OutgoingEncoder      OutgoingEncoder
}

func (o WebSocketOptions) withDefaults() WebSocketOptions {
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = 5 * time.Second
	}
	if o.IncomingParser == nil {
		o.IncomingParser = defaultIncomingParser
	}
	if o.OutgoingEncoder == nil {
		o.OutgoingEncoder = defaultOutgoingEncoder
	}
	return o
}

// HTTPOptions configures the built-in HTTP intake transport.
type HTTPOptions struct {
	Addr string
	Path string
}

// Base is the shared adapter implementation: lifecycle, WebSocket
// supervisor, HTTP intake, and the core<->platform bridge. Platform
// adapters embed it and supply FromPlatformMessage (and, unless the
// WebSocket transport is used, SendPlatformMessage).
type Base struct {
	Platform            string
	Sink                sink.CoreSink
	FromPlatformMessage FromPlatformMessage
	SendPlatformMessage SendPlatformMessage

	ws   *WebSocketOptions
	http *HTTPOptions

	log *slog.Logger

	closed atomic.Bool

	connMu            sync.Mutex
	conn              *websocket.Conn
	reconnectAttempts int

	outgoingSub sink.Subscription

	cancel     context.CancelFunc
	wg         sync.WaitGroup
	httpServer *httpServer
}

// BaseOption configures a Base at construction time.
type BaseOption func(*Base)

// WithWebSocket configures the built-in WebSocket transport.
func WithWebSocket(opts WebSocketOptions) BaseOption {
	o := opts.withDefaults()
	return func(b *Base) { b.ws = &o }
}

// WithHTTP configures the built-in HTTP intake transport.
func WithHTTP(opts HTTPOptions) BaseOption {
	return func(b *Base) { b.http = &opts }
}

// WithSendPlatformMessage overrides the default WebSocket-based send
// implementation. Required when no WebSocket transport is configured.
func WithSendPlatformMessage(fn SendPlatformMessage) BaseOption {
	return func(b *Base) { b.SendPlatformMessage = fn }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) BaseOption {
	return func(b *Base) { b.log = logger }
}

// NewBase constructs a Base for the given platform, wired to s as its
// core sink.
func NewBase(platform string, s sink.CoreSink, from FromPlatformMessage, opts ...BaseOption) *Base {
	b := &Base{
		Platform:            platform,
		Sink:                s,
		FromPlatformMessage: from,
		log:                 slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.SendPlatformMessage == nil && b.ws != nil {
		b.SendPlatformMessage = b.sendViaWebSocket
	}
	return b
}

// Start clears the closed flag, resets reconnect counters, registers
// the core->adapter bridge on the sink, and launches the configured
// transports.
func (b *Base) Start(ctx context.Context) error {
	b.closed.Store(false)
	b.connMu.Lock()
	b.reconnectAttempts = 0
	b.connMu.Unlock()

	b.outgoingSub = b.Sink.SetOutgoingHandler(b.onOutgoingFromCore)

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	if b.ws != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.superviseWebSocket(runCtx)
		}()
	}
	if b.http != nil {
		srv := newHTTPServer(*b.http, b.onHTTPMessage)
		b.httpServer = srv
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			srv.run(runCtx, b.log)
		}()
	}
	return nil
}

// Stop sets the closed flag, unregisters the bridge, cancels the
// supervisor, closes any transport handle, and tears down the HTTP
// server. Idempotent.
func (b *Base) Stop() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.Sink.RemoveOutgoingHandler(b.outgoingSub)
	if b.cancel != nil {
		b.cancel()
	}
	b.connMu.Lock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.connMu.Unlock()
	if b.httpServer != nil {
		b.httpServer.shutdown()
	}
	b.wg.Wait()
	return nil
}

// IsConnected reports whether the WebSocket transport currently holds a
// live connection.
func (b *Base) IsConnected() bool {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	return b.conn != nil
}

// WaitConnected polls until the transport is connected, the context is
// done, or the adapter is stopped.
func (b *Base) WaitConnected(ctx context.Context) bool {
	const pollInterval = 20 * time.Millisecond
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if b.IsConnected() {
			return true
		}
		if b.closed.Load() {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// OnPlatformMessage converts raw into an envelope and forwards it to
// the core via the sink.
func (b *Base) OnPlatformMessage(ctx context.Context, raw any) error {
	env, err := b.FromPlatformMessage(raw)
	if err != nil {
		return err
	}
	return b.Sink.Send(ctx, env)
}

// OnPlatformMessages converts a batch of raw messages and forwards them
// via the sink.
func (b *Base) OnPlatformMessages(ctx context.Context, raws []any) error {
	envs := make([]envelope.Envelope, 0, len(raws))
	for _, raw := range raws {
		env, err := b.FromPlatformMessage(raw)
		if err != nil {
			return err
		}
		envs = append(envs, env)
	}
	return b.Sink.SendMany(ctx, envs)
}

// onOutgoingFromCore bridges core->adapter traffic: if the envelope
// carries a platform tag that doesn't match this adapter's platform,
// it's ignored, letting several adapters share one sink safely.
func (b *Base) onOutgoingFromCore(ctx context.Context, env envelope.Envelope) error {
	if p, ok := envelope.Platform(env); ok && p != b.Platform {
		return nil
	}
	if b.SendPlatformMessage == nil {
		return nil
	}
	return b.SendPlatformMessage(ctx, env)
}

func (b *Base) sendViaWebSocket(ctx context.Context, env envelope.Envelope) error {
	b.connMu.Lock()
	conn := b.conn
	b.connMu.Unlock()
	if conn == nil {
		return &TransportError{Op: "send", Err: errNotConnected}
	}
	payload, err := b.ws.OutgoingEncoder(env)
	if err != nil {
		return &TransportError{Op: "encode", Err: err}
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

func defaultIncomingParser(data []byte) (any, error) {
	var obj any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if m, ok := obj.(map[string]any); ok {
		if m["type"] == "message" {
			return m["payload"], nil
		}
	}
	return obj, nil
}

func defaultOutgoingEncoder(env envelope.Envelope) ([]byte, error) {
	return json.Marshal(map[string]any{"type": "send", "payload": env})
}
