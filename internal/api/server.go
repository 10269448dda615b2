// Package api serves the dashboard aggregates over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	"github.com/Veraticus/the-sales-must-flow/internal/loader"
	"github.com/Veraticus/the-sales-must-flow/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Dashboard is the subset of the dashboard service the API needs.
type Dashboard interface {
	Config() dashboard.Config
	Table(ctx context.Context) (*model.Table, error)
	Render(ctx context.Context, sel dashboard.Selection) (*model.Snapshot, error)
}

// Cache exposes the loader's cache controls.
type Cache interface {
	Invalidate(sourceURL string)
	InvalidateAll()
	Stats() loader.Stats
}

// Publisher broadcasts an invalidation to other replicas. An empty URL means all sources.
type Publisher interface {
	PublishInvalidation(ctx context.Context, sourceURL string) error
}

// Server routes API requests to the dashboard service.
type Server struct {
	dashboard Dashboard
	cache     Cache
	publisher Publisher
	logger    *slog.Logger
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPublisher announces cache invalidations to a broker.
func WithPublisher(p Publisher) Option {
	return func(s *Server) {
		s.publisher = p
	}
}

// NewServer builds the router.
func NewServer(d Dashboard, cache Cache, opts ...Option) (*Server, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: dashboard is required", common.ErrMissingConfig)
	}
	if cache == nil {
		return nil, fmt.Errorf("%w: cache is required", common.ErrMissingConfig)
	}

	s := &Server{dashboard: d, cache: cache}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = common.LoggerOrDefault(s.logger)
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/revenue", s.handleRevenue)
		r.Get("/breakdown/{dimension}", s.handleBreakdown)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/cache", s.handleCacheStats)
		r.Post("/cache/invalidate", s.handleInvalidate)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ServeConfig holds listener settings.
type ServeConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg ServeConfig) error {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}
	return s.Serve(ctx, listener, cfg)
}

// Serve accepts connections on listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context, listener net.Listener, cfg ServeConfig) error {
	srv := &http.Server{
		Handler:           s,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", "addr", listener.Addr().String())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down API", "timeout", shutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
