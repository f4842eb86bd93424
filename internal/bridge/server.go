// Package bridge is the local HTTP surface the browser extension talks to.
// It binds to loopback only: the bridge is a companion process, not a
// network service.
package bridge

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ppiankov/pageguard/internal/engine"
)

// Config holds bridge server configuration.
type Config struct {
	Port int
}

// Server exposes the evaluation engine over local JSON endpoints.
type Server struct {
	cfg    Config
	engine *engine.Engine
	srv    *http.Server
}

// NewServer creates a bridge server around an assembled engine.
func NewServer(cfg Config, eng *engine.Engine) *Server {
	s := &Server{cfg: cfg, engine: eng}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/events", s.handleEvent)
	mux.HandleFunc("GET /v1/audit", s.handleAudit)
	mux.HandleFunc("GET /v1/grants", s.handleGrantList)
	mux.HandleFunc("POST /v1/grants", s.handleGrantAdd)
	mux.HandleFunc("POST /v1/grants/revoke", s.handleGrantRevoke)
	mux.HandleFunc("POST /v1/override", s.handleOverride)
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler: mux,
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens on loopback and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	err = s.srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the bridge.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}
