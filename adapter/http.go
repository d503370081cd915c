package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// httpMessageHandler dispatches one decoded HTTP body: arrays go to
// OnPlatformMessages, scalars to OnPlatformMessage.
type httpMessageHandler func(ctx context.Context, body any) error

// onHTTPMessage implements httpMessageHandler for Base, routing arrays
// to the batch path and anything else to the single-message path.
func (b *Base) onHTTPMessage(ctx context.Context, body any) error {
	if arr, ok := body.([]any); ok {
		return b.OnPlatformMessages(ctx, arr)
	}
	return b.OnPlatformMessage(ctx, body)
}

// httpServer wraps the net/http server backing the HTTP intake
// transport. spec.md's intake is intentionally minimal, and the pack
// has no HTTP framework worth forcing in here, so this matches plain
// net/http the way nugget-thane's own internal/api/server.go does.
type httpServer struct {
	opts    HTTPOptions
	handler httpMessageHandler
	srv     *http.Server
}

func newHTTPServer(opts HTTPOptions, handler httpMessageHandler) *httpServer {
	return &httpServer{opts: opts, handler: handler}
}

func (s *httpServer) run(ctx context.Context, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc(s.opts.Path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if err := s.handler(r.Context(), body); err != nil {
			log.Warn("http intake handler failed", "path", s.opts.Path, "error", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	s.srv = &http.Server{Addr: s.opts.Addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http intake server failed", "addr", s.opts.Addr, "error", err)
	}
}

func (s *httpServer) shutdown() {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.srv.Shutdown(ctx)
}
