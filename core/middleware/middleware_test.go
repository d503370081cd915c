package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/mofox-studio/mofoxbus/core/middleware"
	"github.com/mofox-studio/mofoxbus/envelope"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer log.SetOutput(nil)

	handler := middleware.Logging()(func(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error) {
		return nil, nil
	})

	env := envelope.Envelope{"id": "test-id"}
	if _, err := handler(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "OK") {
		t.Errorf("expected OK log, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "test-id") {
		t.Errorf("expected id in log, got: %s", buf.String())
	}
}

func TestLogging_Error(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer log.SetOutput(nil)

	handler := middleware.Logging()(func(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error) {
		return nil, errors.New("boom")
	})

	handler(context.Background(), envelope.Envelope{"id": "k"})

	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("expected ERROR log, got: %s", buf.String())
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(nil)

	handler := middleware.Recovery()(func(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error) {
		panic("test panic")
	})

	_, err := handler(context.Background(), envelope.Envelope{"id": "k"})
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if !strings.Contains(err.Error(), "panic recovered") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecovery_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(nil)

	handler := middleware.Recovery()(func(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error) {
		return nil, nil
	})

	if _, err := handler(context.Background(), envelope.Envelope{"id": "k"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type fakeCollector struct {
	route    string
	duration time.Duration
	err      error
	called   bool
}

func (f *fakeCollector) MessageProcessed(route string, duration time.Duration, err error) {
	f.called = true
	f.route = route
	f.duration = duration
	f.err = err
}

func TestMetrics(t *testing.T) {
	collector := &fakeCollector{}
	handler := middleware.Metrics("orders.created", collector)(func(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error) {
		return nil, nil
	})

	if _, err := handler(context.Background(), envelope.Envelope{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !collector.called {
		t.Fatal("expected collector to be invoked")
	}
	if collector.route != "orders.created" {
		t.Errorf("route = %q, want orders.created", collector.route)
	}
	if collector.err != nil {
		t.Errorf("err = %v, want nil", collector.err)
	}
}
