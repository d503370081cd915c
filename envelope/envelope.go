// Package envelope defines the opaque message shape passed between
// platform adapters and the core runtime. An Envelope is a plain map;
// the package only knows how to read the handful of well-known fields
// the bus depends on, and preserves everything else verbatim.
package envelope

// Envelope is the canonical wire-independent message. Adapters and the
// core never assume more structure than the fields below.
type Envelope map[string]any

// Segment is a single chain element: {type, data}.
type Segment struct {
	Type string
	Data any
}

// Clone returns a shallow copy of the envelope. Useful for handlers that
// want to return a modified response without mutating the input.
func (e Envelope) Clone() Envelope {
	if e == nil {
		return nil
	}
	out := make(Envelope, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// ID returns the envelope's opaque identifier, or "<unknown>" if absent.
// Used solely in error messages, per the bus contract.
func (e Envelope) ID() string {
	if e == nil {
		return unknownID
	}
	if v, ok := e["id"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return unknownID
}

const unknownID = "<unknown>"

// Platform returns the source/target platform tag, checking the
// canonical message_info.platform field first and falling back to the
// legacy top-level "platform" field.
func Platform(e Envelope) (string, bool) {
	if e == nil {
		return "", false
	}
	if info, ok := asMap(e["message_info"]); ok {
		if p, ok := info["platform"].(string); ok && p != "" {
			return p, true
		}
	}
	if p, ok := e["platform"].(string); ok && p != "" {
		return p, true
	}
	return "", false
}

// EventType returns the first defined of the top-level "event_type" field
// and message_info.additional_config.event_type.
func EventType(e Envelope) (string, bool) {
	if e == nil {
		return "", false
	}
	if et, ok := e["event_type"].(string); ok && et != "" {
		return et, true
	}
	if info, ok := asMap(e["message_info"]); ok {
		if cfg, ok := asMap(info["additional_config"]); ok {
			if et, ok := cfg["event_type"].(string); ok && et != "" {
				return et, true
			}
		}
	}
	return "", false
}

// ExtractSegmentType returns the type of the envelope's message segment:
// message_segment if present, otherwise the first element of
// message_chain. Returns false if neither yields a mapping with a type.
func ExtractSegmentType(e Envelope) (string, bool) {
	if e == nil {
		return "", false
	}
	if seg, ok := asMap(e["message_segment"]); ok {
		if t, ok := seg["type"].(string); ok {
			return t, true
		}
		return "", false
	}
	if chain, ok := e["message_chain"].([]any); ok && len(chain) > 0 {
		if first, ok := asMap(chain[0]); ok {
			if t, ok := first["type"].(string); ok {
				return t, true
			}
		}
	}
	return "", false
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
