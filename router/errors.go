package router

import "errors"

// ErrTCPUnsupported is returned by Connect when a target's URL uses the
// tcp scheme. TCP transport is stubbed until a wire protocol is
// specified; left unimplemented is the deliberate outcome of an open
// question, not an oversight.
var ErrTCPUnsupported = errors.New("mofoxbus/router: tcp transport is not implemented")

// ConfigurationError reports a programmer-facing mistake at the router
// boundary: an unknown platform, an unparsable target URL, a malformed
// route configuration, or a missing platform tag on an outgoing
// envelope. A tcp-scheme target is reported as ErrTCPUnsupported instead.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string { return "mofoxbus/router: " + e.msg }

// IsConfigurationError marks this as a configuration-tier error, the
// same method core.ConfigurationError carries.
func (e *ConfigurationError) IsConfigurationError() bool { return true }

func newConfigurationError(msg string) *ConfigurationError {
	return &ConfigurationError{msg: msg}
}

// ErrNoClient is returned by SendMessage when no client is connected for
// the envelope's platform.
var ErrNoClient = errors.New("mofoxbus/router: no client connected for platform")
