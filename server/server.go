// Package server runs the HTTP formatting service.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/sambeau/jsonatafmt/config"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/jsonata"
)

// Server represents a jsonatafmt HTTP server instance.
type Server struct {
	config    *config.Config
	stdout    io.Writer
	stderr    io.Writer
	logger    *slog.Logger
	formatter *jsonata.Formatter
	cache     *responseCache
	limiter   *rateLimiter
	maxBody   int64
	mux       *http.ServeMux
	server    *http.Server
}

// New creates a new server with the given configuration. Request logs go
// to stdout; the server's own log goes to logger, or is discarded when
// logger is nil.
func New(cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) (*Server, error) {
	maxBody, err := config.ParseSize(cfg.Server.MaxBody)
	if err != nil {
		return nil, fmt.Errorf("server.max_body: %w", err)
	}
	if logger == nil {
		logger = jsonata.NullLogger()
	}

	s := &Server{
		config:  cfg,
		stdout:  stdout,
		stderr:  stderr,
		logger:  logger,
		maxBody: maxBody,
		mux:     http.NewServeMux(),
		formatter: jsonata.New(jsonata.Config{
			Options: cfg.Format.Options(),
			Logger:  logger,
		}),
	}
	if cfg.Server.Cache.Enabled {
		s.cache = newResponseCache(cfg.Server.Cache.TTL, cfg.Server.Cache.MaxEntries)
	}
	if cfg.Server.RateLimit.Enabled {
		s.limiter = newRateLimiter(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window, cfg.Server.Proxy)
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes registers the API endpoints.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /format", s.handleFormat)
	s.mux.HandleFunc("POST /serialize", s.handleSerialize)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the full middleware chain: request logger, CORS, rate
// limit, response cache, compression, routes.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux

	handler = newCompressionHandler(handler, s.config.Server.Compression)

	if s.cache != nil {
		handler = s.cache.Middleware(handler, s.maxBody)
	}

	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}

	handler = newCORSMiddleware(s.config.Server.CORS).Handler(handler)

	if !s.config.Logging.Quiet && s.config.Logging.Level != "error" {
		handler = newRequestLogger(handler, s.stdout, s.config.Logging.Format, s.config.Server.Proxy)
	}

	return handler
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	addr := ln.Addr().String()

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	if s.cache != nil || s.limiter != nil {
		go s.maintain(ctx)
	}

	fmt.Fprintf(s.stdout, "Starting jsonatafmt on http://%s\n", addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintf(s.stdout, "\nShutting down gracefully...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// maintain drops expired responses and idle rate limit buckets once a
// minute until ctx is done.
func (s *Server) maintain(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.prune()
		}
	}
}

func (s *Server) prune() {
	if s.cache != nil {
		if n := s.cache.Prune(); n > 0 {
			s.logger.Debug("pruned response cache", "entries", n)
		}
	}
	if s.limiter != nil {
		if n := s.limiter.Prune(); n > 0 {
			s.logger.Debug("pruned rate limit buckets", "clients", n)
		}
	}
}

// listen binds the configured address, capping concurrent connections when
// server.max_connections is set.
func (s *Server) listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.listenAddr())
	if err != nil {
		return nil, err
	}
	if n := s.config.Server.MaxConns; n > 0 {
		ln = netutil.LimitListener(ln, n)
	}
	return ln, nil
}

// listenAddr returns the address to listen on based on configuration.
func (s *Server) listenAddr() string {
	return net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
}
