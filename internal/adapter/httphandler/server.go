package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const timeoutMessage = "unavailable"

type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	// HandlerTimeout bounds a request from routing to the last body byte.
	HandlerTimeout time.Duration
}

type HTTPServer struct {
	httpServer *http.Server
}

// NewHTTPServer serves routes behind [AllowJSON] and a handler timeout.
// [Observe] wraps the timeout so timed out requests are recorded as 503.
func NewHTTPServer(
	cfg ServerConfig, rec requestRecorder, routes *http.ServeMux,
) HTTPServer {
	var handler http.Handler = AllowJSON(routes)
	handler = http.TimeoutHandler(handler, cfg.HandlerTimeout, timeoutMessage)
	handler = Observe(rec, routes, handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return HTTPServer{s}
}

func (s HTTPServer) Run(stopFn context.CancelFunc) {
	const op = "HTTPServer.Run"
	log := slog.With("op", op)

	defer stopFn()
	log.Info("listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		log.Error("unexpected servers shutdown", "err", err)
	}
}

func (s HTTPServer) Close(ctx context.Context) {
	const op = "HTTPServer.Close"
	log := slog.With("op", op)

	log.Info("closing http server...")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		log.Error("failed to shutdown gracefully", "err", err)
	}
	log.Info("http server is closed")
}
