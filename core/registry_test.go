package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mofox-studio/mofoxbus/core"
	"github.com/mofox-studio/mofoxbus/envelope"
)

func truePredicate(context.Context, envelope.Envelope) (bool, error) { return true, nil }

func noopHandler(_ context.Context, env envelope.Envelope) (envelope.Envelope, error) {
	return env, nil
}

func TestRegistry_DuplicateExplicitType(t *testing.T) {
	reg := core.NewRegistry()

	if _, err := reg.AddRoute(truePredicate, noopHandler, core.WithMessageType("text"), core.WithName("first")); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	_, err := reg.AddRoute(truePredicate, noopHandler, core.WithMessageType("text"), core.WithName("second"))
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	var cfgErr *core.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *core.ConfigurationError, got %T", err)
	}

	if got := len(reg.Routes()); got != 1 {
		t.Fatalf("registry mutated despite failed registration: %d routes", got)
	}
}

func TestRegistry_EventTypesHaveNoUniquenessConstraint(t *testing.T) {
	reg := core.NewRegistry()

	if _, err := reg.AddRoute(truePredicate, noopHandler, core.WithEventTypes("joined")); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := reg.AddRoute(truePredicate, noopHandler, core.WithEventTypes("joined")); err != nil {
		t.Fatalf("second: %v", err)
	}
	if got := len(reg.Routes()); got != 2 {
		t.Fatalf("got %d routes, want 2", got)
	}
}

func TestRegistry_MultipleMessageTypesEachUnique(t *testing.T) {
	reg := core.NewRegistry()

	if _, err := reg.AddRoute(truePredicate, noopHandler, core.WithMessageTypes("text", "image")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.AddRoute(truePredicate, noopHandler, core.WithMessageType("image")); err == nil {
		t.Fatal("expected image to already be owned")
	}
	if _, err := reg.AddRoute(truePredicate, noopHandler, core.WithMessageType("video")); err != nil {
		t.Fatalf("video should register cleanly: %v", err)
	}
}
