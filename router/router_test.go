package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConnector records Connect/RemovePlatform calls instead of dialing
// a real socket, mirroring how smilad-Event-MUX's own router tests
// stub transport-level calls to assert call sequences in isolation.
type fakeConnector struct {
	connected []string
	removed   []string
}

func (f *fakeConnector) Connect(_ context.Context, platform string) error {
	f.connected = append(f.connected, platform)
	return nil
}

func (f *fakeConnector) RemovePlatform(_ context.Context, platform string) error {
	f.removed = append(f.removed, platform)
	return nil
}

// recordingRouter wraps Router's diff logic without dialing real
// WebSocket targets, so UpdateConfig's call sequence can be asserted
// directly against scenario 5.
type recordingRouter struct {
	config RouteConfig
	fake   *fakeConnector
}

func newRecordingRouter() *recordingRouter {
	return &recordingRouter{
		config: RouteConfig{Targets: map[string]TargetConfig{}},
		fake:   &fakeConnector{},
	}
}

func (r *recordingRouter) updateConfig(ctx context.Context, newConfig map[string]any) error {
	parsed, err := RouteConfigFromMap(newConfig)
	if err != nil {
		return err
	}
	added, removed, changed := diffTargets(r.config.Targets, parsed.Targets)
	for _, platform := range append(append([]string{}, removed...), changed...) {
		r.fake.RemovePlatform(ctx, platform)
	}
	r.config = parsed
	for _, platform := range append(append([]string{}, added...), changed...) {
		r.fake.Connect(ctx, platform)
	}
	return nil
}

// Scenario 5: router config diff.
func TestUpdateConfig_DiffSequence(t *testing.T) {
	r := newRecordingRouter()
	ctx := context.Background()

	require.NoError(t, r.updateConfig(ctx, map[string]any{
		"route_config": map[string]any{
			"a": map[string]any{"url": "ws://a:8080"},
		},
	}))
	assert.Equal(t, []string{"a"}, r.fake.connected)
	r.fake.connected = nil

	require.NoError(t, r.updateConfig(ctx, map[string]any{
		"route_config": map[string]any{
			"a": map[string]any{"url": "ws://a:8080"},
			"b": map[string]any{"url": "ws://b:8080"},
		},
	}))
	assert.Equal(t, []string{"b"}, r.fake.connected)
	assert.Empty(t, r.fake.removed)
	r.fake.connected = nil

	require.NoError(t, r.updateConfig(ctx, map[string]any{
		"route_config": map[string]any{
			"a": map[string]any{"url": "ws://new-a:9000"},
		},
	}))
	assert.ElementsMatch(t, []string{"a", "b"}, r.fake.removed)
	assert.Equal(t, []string{"a"}, r.fake.connected)
}

func TestTargetConfig_RoundTrip(t *testing.T) {
	token := "secret"
	sslVerify := "false"
	t1 := TargetConfig{URL: "ws://host:1234", Token: &token, SSLVerify: &sslVerify}

	back, err := TargetConfigFromMap(t1.ToMap())
	require.NoError(t, err)
	assert.Equal(t, t1.URL, back.URL)
	require.NotNil(t, back.Token)
	assert.Equal(t, *t1.Token, *back.Token)
	require.NotNil(t, back.SSLVerify)
	assert.Equal(t, *t1.SSLVerify, *back.SSLVerify)
}

func TestTargetConfig_RoundTrip_AbsentFields(t *testing.T) {
	t1 := TargetConfig{URL: "ws://host:1234"}
	back, err := TargetConfigFromMap(t1.ToMap())
	require.NoError(t, err)
	assert.Equal(t, t1.URL, back.URL)
	assert.Nil(t, back.Token)
	assert.Nil(t, back.SSLVerify)
}

func TestRouteConfig_RoundTrip(t *testing.T) {
	rc := RouteConfig{Targets: map[string]TargetConfig{
		"qq":      {URL: "ws://qq:1"},
		"discord": {URL: "ws://discord:2"},
	}}
	back, err := RouteConfigFromMap(rc.ToMap())
	require.NoError(t, err)
	require.Len(t, back.Targets, 2)
	assert.Equal(t, "ws://qq:1", back.Targets["qq"].URL)
	assert.Equal(t, "ws://discord:2", back.Targets["discord"].URL)
}

func TestParseSSLVerify(t *testing.T) {
	tr, fa := "true", "false"

	v, explicit := ParseSSLVerify(&tr)
	assert.True(t, v)
	assert.True(t, explicit)

	v, explicit = ParseSSLVerify(&fa)
	assert.False(t, v)
	assert.True(t, explicit)

	v, explicit = ParseSSLVerify(nil)
	assert.False(t, v)
	assert.False(t, explicit)
}

func TestRouter_StopIsIdempotent(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Stop(context.Background()))
	require.NoError(t, r.Stop(context.Background()))
	assert.False(t, r.Running())
	assert.Empty(t, r.Clients())
}

func TestRouter_ConnectUnknownPlatformFails(t *testing.T) {
	r := NewRouter()
	err := r.Connect(context.Background(), "nope")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRouter_ConnectTCPSchemeFails(t *testing.T) {
	r := NewRouter()
	r.mu.Lock()
	r.config.Targets["legacy"] = TargetConfig{URL: "tcp://legacy:9000"}
	r.mu.Unlock()

	err := r.Connect(context.Background(), "legacy")
	assert.ErrorIs(t, err, ErrTCPUnsupported)
}

func TestRouter_SendMessageRequiresPlatform(t *testing.T) {
	r := NewRouter()
	err := r.SendMessage(context.Background(), map[string]any{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRouter_SendMessageNoClientFails(t *testing.T) {
	r := NewRouter()
	err := r.SendMessage(context.Background(), map[string]any{"platform": "qq"})
	assert.ErrorIs(t, err, ErrNoClient)
}
