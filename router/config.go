package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TargetConfig is one platform's outbound connection target.
// SSLVerify keeps the raw string form of spec.md's `ssl_verify: opt<string
// | bool>` field so ToMap/TargetConfigFromMap round-trip verbatim
// regardless of whether the source document wrote true, false, or a
// quoted string; ParseSSLVerify interprets the value for callers that
// need a bool.
type TargetConfig struct {
	URL       string
	Token     *string
	SSLVerify *string
}

// ParseSSLVerify interprets a TargetConfig's raw SSLVerify field:
// "true" yields (true, true), "false" yields (false, true), anything
// else (including nil) yields (false, false) meaning "use the default".
func ParseSSLVerify(raw *string) (verify bool, explicit bool) {
	if raw == nil {
		return false, false
	}
	switch *raw {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// ToMap serialises the target to a plain mapping, preserving absent
// fields as nil entries so RouteConfig.ToMap's round trip matches
// spec.md §8's invariant.
func (t TargetConfig) ToMap() map[string]any {
	m := map[string]any{"url": t.URL}
	if t.Token != nil {
		m["token"] = *t.Token
	} else {
		m["token"] = nil
	}
	if t.SSLVerify != nil {
		m["ssl_verify"] = *t.SSLVerify
	} else {
		m["ssl_verify"] = nil
	}
	return m
}

// TargetConfigFromMap parses a mapping produced by ToMap (or an
// equivalent hand-authored one) back into a TargetConfig.
func TargetConfigFromMap(m map[string]any) (TargetConfig, error) {
	url, ok := m["url"].(string)
	if !ok || url == "" {
		return TargetConfig{}, newConfigurationError("target config missing required \"url\"")
	}
	t := TargetConfig{URL: url}
	if v, ok := m["token"]; ok && v != nil {
		if s, ok := v.(string); ok {
			t.Token = &s
		}
	}
	if v, ok := m["ssl_verify"]; ok && v != nil {
		switch sv := v.(type) {
		case string:
			t.SSLVerify = &sv
		case bool:
			s := fmt.Sprintf("%t", sv)
			t.SSLVerify = &s
		}
	}
	return t, nil
}

// RouteConfig is the full platform->target mapping, mirroring spec.md's
// `{route_config: Map<platform -> TargetConfig>}`.
type RouteConfig struct {
	Targets map[string]TargetConfig
}

// ToMap serialises the route config to the nested mapping shape spec.md
// describes.
func (r RouteConfig) ToMap() map[string]any {
	routeConfig := make(map[string]any, len(r.Targets))
	for platform, target := range r.Targets {
		routeConfig[platform] = target.ToMap()
	}
	return map[string]any{"route_config": routeConfig}
}

// RouteConfigFromMap parses a mapping of the shape
// {route_config: {platform: {url, token?, ssl_verify?}}}.
func RouteConfigFromMap(m map[string]any) (RouteConfig, error) {
	raw, ok := m["route_config"]
	if !ok {
		return RouteConfig{Targets: map[string]TargetConfig{}}, nil
	}
	routeConfig, ok := raw.(map[string]any)
	if !ok {
		return RouteConfig{}, newConfigurationError("\"route_config\" must be a mapping")
	}
	targets := make(map[string]TargetConfig, len(routeConfig))
	for platform, v := range routeConfig {
		tm, ok := v.(map[string]any)
		if !ok {
			return RouteConfig{}, newConfigurationError(fmt.Sprintf("target for platform %q must be a mapping", platform))
		}
		t, err := TargetConfigFromMap(tm)
		if err != nil {
			return RouteConfig{}, err
		}
		targets[platform] = t
	}
	return RouteConfig{Targets: targets}, nil
}

// LoadConfigFile reads a YAML route-configuration file and returns the
// same nested mapping shape update_config accepts, letting a real
// deployment hot-reload routing from disk (e.g. a SIGHUP handler in a
// cmd/ binary) rather than only from an in-memory dict, per spec.md
// §1's "live configuration reload" goal.
func LoadConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mofoxbus/router: read config %q: %w", path, err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("mofoxbus/router: parse config %q: %w", path, err)
	}
	return m, nil
}
