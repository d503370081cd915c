package adapter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mofox-studio/mofoxbus/adapter"
	"github.com/mofox-studio/mofoxbus/envelope"
	"github.com/mofox-studio/mofoxbus/sink"
)

func fromRaw(raw any) (envelope.Envelope, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("unexpected raw message shape")
	}
	return envelope.Envelope(m), nil
}

func TestBase_OnPlatformMessageForwardsToSink(t *testing.T) {
	var received envelope.Envelope
	s := sink.NewInProcessSink(func(_ context.Context, env envelope.Envelope) error {
		received = env
		return nil
	})
	b := adapter.NewBase("qq", s, fromRaw)

	err := b.OnPlatformMessage(context.Background(), map[string]any{"id": "m1"})
	require.NoError(t, err)
	assert.Equal(t, "m1", received["id"])
}

func TestBase_OnPlatformMessagesForwardsBatch(t *testing.T) {
	var received []envelope.Envelope
	s := sink.NewInProcessSink(func(_ context.Context, env envelope.Envelope) error {
		received = append(received, env)
		return nil
	})
	b := adapter.NewBase("qq", s, fromRaw)

	raws := []any{map[string]any{"id": "a"}, map[string]any{"id": "b"}}
	err := b.OnPlatformMessages(context.Background(), raws)
	require.NoError(t, err)
	require.Len(t, received, 2)
	assert.Equal(t, "a", received[0]["id"])
	assert.Equal(t, "b", received[1]["id"])
}

func TestBase_OnOutgoingFromCore_PlatformFilter(t *testing.T) {
	s := sink.NewInProcessSink(func(context.Context, envelope.Envelope) error { return nil })
	var sent []envelope.Envelope
	b := adapter.NewBase("qq", s, fromRaw, adapter.WithSendPlatformMessage(
		func(_ context.Context, env envelope.Envelope) error {
			sent = append(sent, env)
			return nil
		},
	))

	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	require.NoError(t, s.PushOutgoing(context.Background(), envelope.Envelope{"platform": "qq", "id": "for-me"}))
	require.NoError(t, s.PushOutgoing(context.Background(), envelope.Envelope{"platform": "discord", "id": "not-for-me"}))

	require.Len(t, sent, 1)
	assert.Equal(t, "for-me", sent[0]["id"])
}

func TestBase_SendPlatformMessage_FailsWhenNotConnected(t *testing.T) {
	s := sink.NewInProcessSink(func(context.Context, envelope.Envelope) error { return nil })
	b := adapter.NewBase("qq", s, fromRaw, adapter.WithWebSocket(adapter.WebSocketOptions{
		URL: "ws://127.0.0.1:0/does-not-exist",
	}))

	err := b.SendPlatformMessage(context.Background(), envelope.Envelope{"id": "x"})
	var transportErr *adapter.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestBase_StopIsIdempotent(t *testing.T) {
	s := sink.NewInProcessSink(func(context.Context, envelope.Envelope) error { return nil })
	b := adapter.NewBase("qq", s, fromRaw)

	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Stop())
	require.NoError(t, b.Stop())
}

func TestBase_WaitConnectedReturnsFalseOnTimeout(t *testing.T) {
	s := sink.NewInProcessSink(func(context.Context, envelope.Envelope) error { return nil })
	b := adapter.NewBase("qq", s, fromRaw, adapter.WithWebSocket(adapter.WebSocketOptions{
		URL:               "ws://127.0.0.1:1/unreachable",
		ReconnectInterval: 10 * time.Millisecond,
	}))

	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.False(t, b.WaitConnected(ctx), "expected WaitConnected to time out against an unreachable URL")
}
