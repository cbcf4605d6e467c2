// Package web provides the HTTP server for converting between network files
// and feeds.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/transitconv/internal/config"
	"github.com/JonMunkholm/transitconv/internal/convert"
	"github.com/JonMunkholm/transitconv/internal/feed"
	"github.com/JonMunkholm/transitconv/internal/network"
	"github.com/JonMunkholm/transitconv/internal/table"
	"github.com/JonMunkholm/transitconv/internal/web/middleware"
)

// Populator stores converted tables. pgsink.Sink implements it.
type Populator interface {
	Populate(ctx context.Context, tables ...*table.Table) (map[string]int64, error)
}

// Server is the HTTP server for the conversion service.
type Server struct {
	cfg       *config.Config
	converter *convert.Converter
	sink      Populator
	limiter   *jobLimiter
	tables    []TableInfo
	router    *chi.Mux
	server    *http.Server
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSink lets requests ask for converted tables to be stored as well.
func WithSink(p Populator) Option {
	return func(s *Server) { s.sink = p }
}

// WithLogger sets the logger used outside request scope.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, conv *convert.Converter, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		converter: conv,
		limiter:   newJobLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		tables: append(
			catalogInfo("network", network.Catalog),
			catalogInfo("feed", feed.Catalog)...,
		),
		router: chi.NewRouter(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleListTables)

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))
			r.Post("/convert/network-to-feed", s.handleNetworkToFeed)
			r.Post("/convert/feed-to-network", s.handleFeedToNetwork)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for running conversions.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if derr := s.limiter.drain(ctx); derr != nil && err == nil {
		err = derr
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
