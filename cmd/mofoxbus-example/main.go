// Command mofoxbus-example wires a Runtime, an in-process sink, and a
// WebSocket platform adapter into a minimal running bus, mirroring
// smilad-Event-MUX's examples/basic layout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mofox-studio/mofoxbus/adapter"
	"github.com/mofox-studio/mofoxbus/core"
	"github.com/mofox-studio/mofoxbus/core/middleware"
	"github.com/mofox-studio/mofoxbus/envelope"
	"github.com/mofox-studio/mofoxbus/sink"
)

// ChatMessage represents a decoded chat-platform payload.
type ChatMessage struct {
	Text string `json:"text"`
	User string `json:"user"`
}

// bindChatMessage decodes env's message segment data into msg.
func bindChatMessage(env envelope.Envelope, msg *ChatMessage) error {
	seg, ok := env["message_segment"].(map[string]any)
	if !ok {
		return fmt.Errorf("mofoxbus-example: envelope has no message_segment")
	}
	data, err := json.Marshal(seg["data"])
	if err != nil {
		return err
	}
	return json.Unmarshal(data, msg)
}

func main() {
	rt := core.NewRuntime()

	rt.Use(middleware.Recovery())
	rt.Use(middleware.Logging())

	_, err := rt.AddRoute(
		func(context.Context, envelope.Envelope) (bool, error) { return true, nil },
		func(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error) {
			var msg ChatMessage
			if err := bindChatMessage(env, &msg); err != nil {
				return nil, err
			}
			fmt.Printf("chat message from %s: %s\n", msg.User, msg.Text)
			return nil, nil
		},
		core.WithName("chat.echo"),
		core.WithMessageTypes("text"),
	)
	if err != nil {
		log.Fatalf("add route: %v", err)
	}

	s := sink.NewInProcessSink(func(ctx context.Context, env envelope.Envelope) error {
		_, err := rt.HandleMessage(ctx, env)
		return err
	})

	a := adapter.NewBase(
		"chat",
		s,
		func(raw any) (envelope.Envelope, error) {
			data, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("mofoxbus-example: unexpected payload shape %T", raw)
			}
			return envelope.Envelope(data), nil
		},
		adapter.WithWebSocket(adapter.WebSocketOptions{URL: "ws://localhost:8765/chat"}),
		adapter.WithLogger(slog.Default()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		cancel()
	}()

	log.Println("starting mofoxbus example...")
	if err := a.Start(ctx); err != nil {
		log.Fatalf("adapter: %v", err)
	}

	<-ctx.Done()
	if err := a.Stop(); err != nil {
		log.Printf("adapter stop: %v", err)
	}
}
