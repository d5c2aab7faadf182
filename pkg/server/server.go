// Package server exposes an agents.Asker over HTTP. It serves the liveness
// routes, the authenticated /chat endpoint, and a WebSocket variant of it.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/germanamz/agentapi/pkg/agents"
)

const (
	// APIKeyHeader carries the shared secret on /chat requests.
	APIKeyHeader = "x-api-key"
	// APIKeyQuery carries the shared secret on WebSocket upgrades, where
	// browsers cannot set headers.
	APIKeyQuery = "api_key"
	// RequestIDHeader echoes the request identifier.
	RequestIDHeader = "X-Request-ID"

	maxBodySize     = 1 << 20 // 1MB
	shutdownTimeout = 5 * time.Second
)

// Config configures a Server.
type Config struct {
	Addr        string
	APIKey      string //nolint:gosec // configuration field, not a hardcoded secret
	CORSOrigins []string
	RateLimit   RateLimit
	Logger      *slog.Logger
}

// RateLimit limits /chat requests per client IP. RequestsPerMin of zero
// disables it.
type RateLimit struct {
	RequestsPerMin int
	Burst          int // Defaults to RequestsPerMin.
}

// Server serves the agent API.
type Server struct {
	cfg     Config
	asker   agents.Asker
	log     *slog.Logger
	handler http.Handler
}

// New creates a Server answering chat messages with asker.
func New(asker agents.Asker, cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{cfg: cfg, asker: asker, log: log}

	chat := s.requireAPIKey
	if cfg.RateLimit.RequestsPerMin > 0 {
		limit := newRateLimiter(cfg.RateLimit)
		chat = func(next http.Handler) http.Handler {
			return limit.middleware(s.requireAPIKey(next))
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /chat", chat(http.HandlerFunc(s.handleChat)))
	mux.Handle("GET /chat/ws", chat(http.HandlerFunc(s.handleChatWS)))

	s.handler = requestID(s.logRequests(cors(cfg.CORSOrigins, mux)))

	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second, // allow time for the model
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server started", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.log.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
