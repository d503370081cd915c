// Command mofoxbus-broker-bridge wires a Runtime and a WebSocket platform
// adapter through sink.BrokerQueueSink/BrokerQueueSinkServer instead of
// the in-process sink, carrying envelopes over a real message broker
// (NATS, Kafka, or RabbitMQ) the way separate adapter and core processes
// would, mirroring smilad-Event-MUX's examples/basic layout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mofox-studio/mofoxbus/adapter"
	"github.com/mofox-studio/mofoxbus/broker"
	"github.com/mofox-studio/mofoxbus/core"
	"github.com/mofox-studio/mofoxbus/core/middleware"
	"github.com/mofox-studio/mofoxbus/envelope"
	"github.com/mofox-studio/mofoxbus/sink"

	// Import a plugin to trigger its self-registration via init(). Swap
	// for the kafka or rabbitmq plugin to bridge over those brokers
	// instead; the rest of this command is broker-agnostic.
	_ "github.com/mofox-studio/mofoxbus/broker/plugins/nats"
)

const (
	toCoreTopic   = "mofoxbus.chat.to_core"
	fromCoreTopic = "mofoxbus.chat.from_core"
)

func main() {
	brokerName := flag.String("broker", "nats", "registered broker name to bridge over")
	brokerURL := flag.String("broker-url", "nats://localhost:4222", "broker connection string")
	wsURL := flag.String("ws-url", "ws://localhost:8765/chat", "platform WebSocket URL")
	flag.Parse()

	b, err := broker.Create(*brokerName, broker.Config{
		Brokers: []string{*brokerURL},
		Group:   "mofoxbus-bridge",
	})
	if err != nil {
		log.Fatalf("create broker %q: %v", *brokerName, err)
	}
	defer b.Close()

	rt := core.NewRuntime()
	rt.Use(middleware.Recovery())
	rt.Use(middleware.Logging())

	_, err = rt.AddRoute(
		func(context.Context, envelope.Envelope) (bool, error) { return true, nil },
		func(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error) {
			log.Printf("bridged message from %v: %v", env["platform"], env["id"])
			return nil, nil
		},
		core.WithName("bridge.echo"),
	)
	if err != nil {
		log.Fatalf("add route: %v", err)
	}

	server := sink.NewBrokerQueueSinkServer(b, toCoreTopic, fromCoreTopic, func(ctx context.Context, env envelope.Envelope) error {
		_, err := rt.HandleMessage(ctx, env)
		return err
	})
	server.Start()
	defer server.Close()

	adapterSink := sink.NewBrokerQueueSink(b, toCoreTopic, fromCoreTopic)
	defer adapterSink.Close()

	a := adapter.NewBase(
		"chat",
		adapterSink,
		func(raw any) (envelope.Envelope, error) {
			data, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("mofoxbus-broker-bridge: unexpected payload shape %T", raw)
			}
			return envelope.Envelope(data), nil
		},
		adapter.WithWebSocket(adapter.WebSocketOptions{URL: *wsURL}),
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

	log.Printf("bridging %q over %s...", *wsURL, *brokerName)
	if err := a.Start(ctx); err != nil {
		log.Fatalf("adapter: %v", err)
	}

	<-ctx.Done()
	if err := a.Stop(); err != nil {
		log.Printf("adapter stop: %v", err)
	}
}
