package middleware

import (
	"context"
	"time"

	"github.com/mofox-studio/mofoxbus/core"
	"github.com/mofox-studio/mofoxbus/envelope"
)

// MetricsCollector is the interface that metrics backends must
// implement. This keeps the middleware decoupled from any specific
// metrics library; see the mofoxbus/metrics package for a concrete
// Prometheus-backed implementation.
type MetricsCollector interface {
	// MessageProcessed records that an envelope was processed. route
	// identifies the matched route for labeling, duration is processing
	// time, and err is nil on success.
	MessageProcessed(route string, duration time.Duration, err error)
}

// Metrics returns middleware that reports processing metrics to the
// given collector. route identifies the route for metric labeling.
func Metrics(route string, collector MetricsCollector) core.MiddlewareFunc {
	return func(next core.Handler) core.Handler {
		return func(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error) {
			start := time.Now()
			resp, err := next(ctx, env)
			collector.MessageProcessed(route, time.Since(start), err)
			return resp, err
		}
	}
}
