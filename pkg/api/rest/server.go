// Package rest exposes the search engine over HTTP: submitting runs,
// polling their status, and running a one-shot analysis of a single
// configuration, all driven directly through pkg/engine rather than
// proxied to a separate service process.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/latticeforge/sqs/pkg/api/rest/middleware"
	"github.com/latticeforge/sqs/pkg/config"
	"github.com/latticeforge/sqs/pkg/observability"
)

// Server represents the REST API server.
type Server struct {
	cfg        config.Config
	handler    *Handler
	httpServer *http.Server
	mux        *http.ServeMux
	access     *observability.AccessLogger
}

// NewServer creates a new REST API server bound to cfg, serving runs
// through pkg/engine and reporting through metrics and logger.
func NewServer(cfg config.Config, logger *observability.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}

	server := &Server{
		cfg:     cfg,
		handler: NewHandler(metrics, logger),
		mux:     http.NewServeMux(),
		access:  observability.NewAccessLogger(logger),
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      server.withMiddleware(server.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return server
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /v1/health", s.handler.HealthCheck)
	s.mux.HandleFunc("POST /v1/run/iteration", s.handler.RunIteration)
	s.mux.HandleFunc("POST /v1/run/analysis", s.handler.RunAnalysis)
	s.mux.HandleFunc("GET /v1/jobs/{id}", s.handler.GetJob)
}

// withMiddleware wraps the mux with logging, rate limiting, and auth,
// in the order a request actually passes through them.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = middleware.AuthMiddleware(middleware.AuthConfig{
		JWTSecret:   s.cfg.Auth.Secret,
		Enabled:     s.cfg.Auth.Enabled,
		PublicPaths: []string{"/v1/health"},
	})(handler)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Enabled:           s.cfg.RateLimit.Enabled,
		RequestsPerSecond: s.cfg.RateLimit.RequestsPerSecond,
		Burst:             s.cfg.RateLimit.Burst,
	})
	handler = middleware.RateLimitMiddleware(rateLimiter)(handler)

	handler = s.loggingMiddleware(handler)

	return handler
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.access.LogAccess(r.Method, r.URL.Path, fmt.Sprintf("%d", wrapped.statusCode), time.Since(start), nil)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the REST API server. It blocks until the server stops.
func (s *Server) Start() error {
	if s.cfg.Server.EnableTLS {
		if err := s.httpServer.ListenAndServeTLS(s.cfg.Server.CertFile, s.cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTPS server: %w", err)
		}
		return nil
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
