// Package httpapi exposes the backup endpoint over HTTP: a single path
// dispatching on the "action" query parameter.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/logging"
)

type HTTPServer struct {
	address         string
	path            string
	handler         http.Handler
	logger          logging.Logger
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
}

func NewHTTPServer(address, path string, h *Handler, l logging.Logger, requestTimeout, shutdownTimeout time.Duration) *HTTPServer {
	if path == "" {
		path = "/"
	}
	logger := l.With("module", "http_server")
	return &HTTPServer{
		address:         address,
		path:            path,
		handler:         withRecover(withLogging(withTimeout(h, requestTimeout), logger), logger),
		logger:          logger,
		requestTimeout:  requestTimeout,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(s.path, s.handler)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.requestTimeout > 0 {
		srv.ReadTimeout = s.requestTimeout
		srv.WriteTimeout = s.requestTimeout + 5*time.Second
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String(), "path", s.path)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
