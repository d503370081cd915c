package adapter

import "errors"

var errNotConnected = errors.New("mofoxbus/adapter: transport is not connected")

// TransportError reports a failure sending a platform message: the
// transport isn't connected, encoding failed, or the underlying write
// failed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "mofoxbus/adapter: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
