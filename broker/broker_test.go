package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/mofox-studio/mofoxbus/broker"
	"github.com/mofox-studio/mofoxbus/internal/mock"
)

func TestMockBroker_SubscribeThenDeliver(t *testing.T) {
	b := mock.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan broker.Message, 1)
	go b.Subscribe(ctx, "orders", func(_ context.Context, msg broker.Message) error {
		received <- msg
		return nil
	})

	// Give Subscribe a chance to register its handler before delivery.
	time.Sleep(50 * time.Millisecond)

	msg := &mock.Message{K: []byte("k1"), V: []byte("v1")}
	if err := b.Deliver(ctx, "orders", msg); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	select {
	case got := <-received:
		if string(got.Value()) != "v1" {
			t.Errorf("value = %q, want v1", got.Value())
		}
	default:
		t.Fatal("handler was not invoked")
	}
}

func TestMockBroker_PublishRecordsMessages(t *testing.T) {
	b := mock.NewBroker()
	msg := &mock.Message{K: []byte("k"), V: []byte("v")}
	if err := b.Publish(context.Background(), "orders", msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	published := b.Published()
	if len(published) != 1 || published[0].Topic != "orders" {
		t.Fatalf("published = %+v", published)
	}
}

func TestMockBroker_CloseIsRecorded(t *testing.T) {
	b := mock.NewBroker()
	if b.IsClosed() {
		t.Fatal("expected not closed initially")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !b.IsClosed() {
		t.Fatal("expected closed after Close")
	}
}

func TestMockMessage_AckNack(t *testing.T) {
	m := &mock.Message{H: map[string]string{"a": "b"}}
	if err := m.Ack(); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !m.Acked {
		t.Fatal("expected Acked true")
	}
	if err := m.Nack(); err != nil {
		t.Fatalf("nack: %v", err)
	}
	if !m.Nacked {
		t.Fatal("expected Nacked true")
	}
	if m.Headers()["a"] != "b" {
		t.Fatalf("headers = %v", m.Headers())
	}
}
