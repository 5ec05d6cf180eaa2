package infra

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServer owns the listening server for cmd/api.
type HTTPServer struct {
	srv *http.Server
}

// NewHTTPServer applies the configured timeouts. POST /animations answers
// only after the whole batch settles, so WriteTimeout has to cover it.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{srv: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}}
}

func (s *HTTPServer) Addr() string {
	if s == nil || s.srv == nil {
		return ""
	}
	return s.srv.Addr
}

// Start blocks until the server stops. http.ErrServerClosed after Shutdown
// is reported as nil.
func (s *HTTPServer) Start() error {
	if s == nil || s.srv == nil {
		return nil
	}
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
