package middleware

import (
	"context"
	"fmt"
	"log"
	"runtime"

	"github.com/mofox-studio/mofoxbus/core"
	"github.com/mofox-studio/mofoxbus/envelope"
)

// Recovery returns middleware that recovers from panics in handlers,
// logs the stack trace, and returns the panic as an error.
func Recovery() core.MiddlewareFunc {
	return func(next core.Handler) core.Handler {
		return func(ctx context.Context, env envelope.Envelope) (resp envelope.Envelope, err error) {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					log.Printf("[mofoxbus] PANIC recovered: %v\n%s", r, buf[:n])
					err = fmt.Errorf("mofoxbus: panic recovered: %v", r)
				}
			}()
			return next(ctx, env)
		}
	}
}
