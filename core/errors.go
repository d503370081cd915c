package core

import (
	"fmt"

	"github.com/mofox-studio/mofoxbus/envelope"
)

// ConfigurationError signals a programmer mistake caught at the API
// boundary: a duplicate explicit message-type registration today, more
// kinds of registration mistake as the registry grows.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string { return "mofoxbus: " + e.msg }

// IsConfigurationError marks this as a configuration-tier error; the
// router package's ConfigurationError carries the same method.
func (e *ConfigurationError) IsConfigurationError() bool { return true }

func newConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

// ProcessingError wraps any error raised by a predicate, middleware, or
// handler while dispatching an envelope. It carries the original cause
// and the envelope that was being processed.
type ProcessingError struct {
	Envelope envelope.Envelope
	Cause    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("mofoxbus: error processing message %s: %v", e.Envelope.ID(), e.Cause)
}

func (e *ProcessingError) Unwrap() error { return e.Cause }
