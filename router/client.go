package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mofox-studio/mofoxbus/envelope"
	"github.com/mofox-studio/mofoxbus/sink"
)

// Client is one per-platform outbound WebSocket connection the router
// maintains. handlers is a forwarding list attached at connect time:
// spec.md leaves the client-side handler-registration hook unspecified
// beyond that shape, so inbound frames are simply decoded and handed to
// every registered handler with no richer semantics inferred.
type Client struct {
	platform string
	target   TargetConfig
	handlers []sink.OutgoingHandler
	log      *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func newClient(platform string, target TargetConfig, handlers []sink.OutgoingHandler, log *slog.Logger) *Client {
	return &Client{platform: platform, target: target, handlers: handlers, log: log}
}

// start dials the target URL and launches the read loop that forwards
// decoded inbound frames to every registered handler.
func (c *Client) start(ctx context.Context) error {
	header := http.Header{}
	if c.target.Token != nil {
		header.Set("Authorization", "Bearer "+*c.target.Token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.target.URL, header)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop(runCtx)
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("router client connection lost", "platform", c.platform, "error", err)
			}
			return
		}
		var env envelope.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("router client received malformed frame", "platform", c.platform, "error", err)
			continue
		}
		for _, h := range c.handlers {
			if err := h(ctx, env); err != nil {
				c.log.Warn("router client handler failed", "platform", c.platform, "error", err)
			}
		}
	}
}

// send writes env as a JSON frame to the platform.
func (c *Client) send(_ context.Context, env envelope.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNoClient
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// stop cancels the read loop and closes the connection. Idempotent.
func (c *Client) stop() error {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	done := c.done
	c.conn = nil
	c.cancel = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	conn.Close()
	if done != nil {
		<-done
	}
	return nil
}
