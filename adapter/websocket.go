package adapter

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// superviseWebSocket dials the configured URL and runs the read loop
// until the adapter is stopped, reconnecting on disconnect at a fixed
// interval with an optional attempt ceiling. This mirrors spec.md's
// explicit fixed-interval reconnect policy, not the exponential backoff
// of a general-purpose health watcher: the two solve different problems.
func (b *Base) superviseWebSocket(ctx context.Context) {
	for !b.closed.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		header := http.Header(b.ws.Header)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.ws.URL, header)
		if err != nil {
			if !b.awaitReconnect(ctx) {
				return
			}
			continue
		}

		b.connMu.Lock()
		b.conn = conn
		b.reconnectAttempts = 0
		b.connMu.Unlock()
		b.log.Info("adapter connected", "platform", b.Platform, "url", b.ws.URL)

		b.readLoop(ctx, conn)

		b.connMu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.connMu.Unlock()
		conn.Close()

		if b.closed.Load() {
			return
		}
		if !b.awaitReconnect(ctx) {
			return
		}
	}
}

// readLoop iterates incoming WebSocket frames until the connection
// drops or the adapter is stopped. Per-frame errors from the configured
// parser or FromPlatformMessage are logged and skipped so a single bad
// frame never breaks the loop.
func (b *Base) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Info("adapter connection closed normally", "platform", b.Platform)
			} else {
				b.log.Warn("adapter connection lost", "platform", b.Platform, "error", err)
			}
			return
		}

		raw, err := b.ws.IncomingParser(data)
		if err != nil {
			b.log.Warn("adapter failed to parse frame", "platform", b.Platform, "error", err)
			continue
		}
		if err := b.OnPlatformMessage(ctx, raw); err != nil {
			b.log.Warn("adapter failed to handle frame", "platform", b.Platform, "error", err)
		}
	}
}

// awaitReconnect increments the attempt counter, gives up once
// MaxReconnectAttempts is exceeded, and otherwise sleeps
// ReconnectInterval, honouring cancellation throughout. Returns false
// when the supervisor should stop entirely.
func (b *Base) awaitReconnect(ctx context.Context) bool {
	b.connMu.Lock()
	b.reconnectAttempts++
	attempts := b.reconnectAttempts
	b.connMu.Unlock()

	if b.ws.MaxReconnectAttempts > 0 && attempts > b.ws.MaxReconnectAttempts {
		b.log.Error("adapter exhausted reconnect attempts, giving up", "platform", b.Platform, "attempts", attempts)
		return false
	}

	timer := time.NewTimer(b.ws.ReconnectInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
