package sink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mofox-studio/mofoxbus/envelope"
	"github.com/mofox-studio/mofoxbus/sink"
)

func TestInProcessSink_SendInvokesCoreHandlerDirectly(t *testing.T) {
	var received envelope.Envelope
	s := sink.NewInProcessSink(func(_ context.Context, env envelope.Envelope) error {
		received = env
		return nil
	})

	if err := s.Send(context.Background(), envelope.Envelope{"id": "m1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if received["id"] != "m1" {
		t.Fatalf("core handler did not see the envelope: %v", received)
	}
}

func TestInProcessSink_PushOutgoingFansOutToAllHandlers(t *testing.T) {
	s := sink.NewInProcessSink(func(context.Context, envelope.Envelope) error { return nil })

	var calls1, calls2 int
	s.SetOutgoingHandler(func(context.Context, envelope.Envelope) error { calls1++; return nil })
	s.SetOutgoingHandler(func(context.Context, envelope.Envelope) error { calls2++; return nil })

	if err := s.PushOutgoing(context.Background(), envelope.Envelope{"id": "out"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if calls1 != 1 || calls2 != 1 {
		t.Fatalf("calls1=%d calls2=%d, want 1 each", calls1, calls2)
	}
}

func TestInProcessSink_RemoveOutgoingHandlerStopsDelivery(t *testing.T) {
	s := sink.NewInProcessSink(func(context.Context, envelope.Envelope) error { return nil })
	var calls int
	sub := s.SetOutgoingHandler(func(context.Context, envelope.Envelope) error { calls++; return nil })
	s.RemoveOutgoingHandler(sub)

	if err := s.PushOutgoing(context.Background(), envelope.Envelope{}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 after removal", calls)
	}
}

func TestInProcessSink_PushOutgoingWithNoHandlersDoesNotError(t *testing.T) {
	s := sink.NewInProcessSink(func(context.Context, envelope.Envelope) error { return nil })
	if err := s.PushOutgoing(context.Background(), envelope.Envelope{}); err != nil {
		t.Fatalf("push with no handlers: %v", err)
	}
}

func TestInProcessSink_CloseIsIdempotent(t *testing.T) {
	s := sink.NewInProcessSink(func(context.Context, envelope.Envelope) error { return nil })
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

// Scenario 6: cross-process sink round-trip. An adapter-side QueueSink
// sends an envelope that the core-side QueueSinkServer receives and
// dispatches; the server then pushes a reply back that the adapter's
// outgoing handler observes.
func TestQueueSink_CrossProcessRoundTrip(t *testing.T) {
	queues := sink.NewQueues(4)

	received := make(chan envelope.Envelope, 1)
	server := sink.NewQueueSinkServer(queues, func(_ context.Context, env envelope.Envelope) error {
		received <- env
		return nil
	})
	server.Start()
	defer server.Close()

	adapter := sink.NewQueueSink(queues)
	defer adapter.Close()

	outgoing := make(chan envelope.Envelope, 1)
	adapter.SetOutgoingHandler(func(_ context.Context, env envelope.Envelope) error {
		outgoing <- env
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := adapter.Send(ctx, envelope.Envelope{"id": "req-1"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case env := <-received:
		if env["id"] != "req-1" {
			t.Fatalf("server received %v, want id req-1", env)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server to receive the envelope")
	}

	if err := server.PushOutgoing(ctx, envelope.Envelope{"id": "resp-1"}); err != nil {
		t.Fatalf("push outgoing: %v", err)
	}

	select {
	case env := <-outgoing:
		if env["id"] != "resp-1" {
			t.Fatalf("adapter received %v, want id resp-1", env)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for adapter to receive the reply")
	}
}

func TestQueueSink_CloseStopsListenerViaStopSentinel(t *testing.T) {
	queues := sink.NewQueues(4)
	adapter := sink.NewQueueSink(queues)

	var calls int
	adapter.SetOutgoingHandler(func(context.Context, envelope.Envelope) error { calls++; return nil })

	done := make(chan struct{})
	go func() {
		adapter.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return promptly")
	}
	if calls != 0 {
		t.Fatalf("outgoing handler should not have been invoked, calls=%d", calls)
	}
}

func TestQueueSinkServer_CloseIsIdempotent(t *testing.T) {
	queues := sink.NewQueues(4)
	server := sink.NewQueueSinkServer(queues, func(context.Context, envelope.Envelope) error { return nil })
	server.Start()

	if err := server.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestQueueSink_SendRespectsContextCancellation(t *testing.T) {
	queues := sink.NewQueues(0) // unbuffered so a stuck send blocks until cancelled
	adapter := sink.NewQueueSink(queues)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := adapter.Send(ctx, envelope.Envelope{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
