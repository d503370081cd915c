package broker

import (
	"context"
	"testing"
)

type stubBroker struct{}

func (stubBroker) Publish(context.Context, string, Message) error   { return nil }
func (stubBroker) Subscribe(context.Context, string, Handler) error { return nil }
func (stubBroker) Close() error                                    { return nil }

func TestRegistry_CreateUsesRegisteredFactory(t *testing.T) {
	Register("stub-for-test", func(cfg Config) (Broker, error) {
		return stubBroker{}, nil
	})

	b, err := Create("stub-for-test", Config{Topic: "t"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := b.(stubBroker); !ok {
		t.Fatalf("got %T, want stubBroker", b)
	}
}

func TestRegistry_CreateUnknownNameFails(t *testing.T) {
	_, err := Create("does-not-exist", Config{})
	if err == nil {
		t.Fatal("expected error for unknown broker name")
	}
}
