// Package server hosts the HTTP surface of the sandbox: health, metrics and
// the routes contributed by route providers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/marketdesk/internal/version"
)

// VersionHeader carries the build version on every core response.
const VersionHeader = "X-MarketDesk-Version"

// Route is one HTTP endpoint. Path follows net/http pattern syntax and may
// contain wildcards such as {id}.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// RouteProvider contributes routes to the server.
type RouteProvider interface {
	Name() string
	Routes() []Route
}

// Server is the sandbox HTTP server.
type Server struct {
	httpServer *http.Server
	providers  []RouteProvider
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a Server. A nil gatherer serves the default registry.
func New(addr string, logger *zap.Logger, gatherer prometheus.Gatherer, providers ...RouteProvider) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()

	s := &Server{
		// Read and write deadlines stay unset so /api/live streams are not cut.
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		providers: providers,
		gatherer:  gatherer,
		logger:    logger,
		mux:       mux,
	}

	s.registerCoreRoutes()
	s.mountRoutes()

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// registerCoreRoutes sets up routes that are always available.
func (s *Server) registerCoreRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// mountRoutes registers every provider route verbatim.
func (s *Server) mountRoutes() {
	for _, p := range s.providers {
		for _, route := range p.Routes() {
			pattern := fmt.Sprintf("%s %s", route.Method, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("provider", p.Name()),
				zap.String("pattern", pattern),
			)
		}
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(VersionHeader, version.Short())
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "marketdesk",
		"version":   version.Map(),
		"providers": names,
	})
}
