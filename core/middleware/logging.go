package middleware

import (
	"context"
	"log"
	"time"

	"github.com/mofox-studio/mofoxbus/core"
	"github.com/mofox-studio/mofoxbus/envelope"
)

// Logging returns middleware that logs dispatch duration and errors for
// every handled envelope.
func Logging() core.MiddlewareFunc {
	return func(next core.Handler) core.Handler {
		return func(ctx context.Context, env envelope.Envelope) (envelope.Envelope, error) {
			start := time.Now()
			resp, err := next(ctx, env)
			elapsed := time.Since(start)

			if err != nil {
				log.Printf("[mofoxbus] ERROR id=%s elapsed=%s err=%v", env.ID(), elapsed, err)
			} else {
				log.Printf("[mofoxbus] OK    id=%s elapsed=%s", env.ID(), elapsed)
			}
			return resp, err
		}
	}
}
