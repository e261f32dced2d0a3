// Package web serves the read-only JSON query API.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/jobinsights/internal/config"
	"github.com/JonMunkholm/jobinsights/internal/insights"
	"github.com/JonMunkholm/jobinsights/internal/metrics"
	"github.com/JonMunkholm/jobinsights/internal/web/middleware"
)

// DatasetCache is the part of *jobs.Loader the API depends on.
type DatasetCache interface {
	insights.DatasetLoader
	Invalidate(path string) bool
	Cached() []string
}

// Server is the HTTP server for the query API.
type Server struct {
	cfg      *config.Config
	catalog  *config.Catalog
	loader   DatasetCache
	service  *insights.Service
	recorder *metrics.Recorder

	router *chi.Mux
	server *http.Server
}

// NewServer wires routes and middleware. recorder may be nil, in which case
// /metrics is not mounted and requests are not counted.
func NewServer(cfg *config.Config, catalog *config.Catalog, loader DatasetCache, recorder *metrics.Recorder) *Server {
	s := &Server{
		cfg:      cfg,
		catalog:  catalog,
		loader:   loader,
		service:  insights.New(loader),
		recorder: recorder,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.recorder != nil {
		s.router.Use(s.instrument)
	}
	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerSecond, s.cfg.Rate.Burst)
		s.router.Use(limiter.middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.recorder != nil {
		s.router.Method(http.MethodGet, "/metrics", s.recorder.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))

		r.Get("/datasets", s.handleListDatasets)

		r.Route("/datasets/{name}", func(r chi.Router) {
			r.Get("/job-types", s.handleJobTypes)
			r.Get("/industries", s.handleIndustries)
			r.Get("/salary/max", s.handleMaxSalary)
			r.Get("/salary/min", s.handleMinSalary)
			r.Get("/summary", s.handleSummary)
			r.Get("/jobs", s.handleJobs)
			r.Post("/reload", s.handleReload)
		})

		r.Post("/salary-range/match", s.handleMatchSalaryRange)
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// instrument counts requests by route pattern, not raw path, so dataset
// names do not explode label cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.recorder.ObserveRequest(r.Method, route, status, time.Since(start))
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
