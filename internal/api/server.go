// Package api provides the HTTP status API for the collection fixture.
// It exposes health, collector status, cached network queries, and
// Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anstrom/radiomap/internal/collector"
	"github.com/anstrom/radiomap/internal/config"
	"github.com/anstrom/radiomap/internal/logging"
	"github.com/anstrom/radiomap/internal/metrics"
	"github.com/anstrom/radiomap/internal/wifi"
)

const serverShutdownTimeout = 10 * time.Second

// Server serves the status API over HTTP.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *config.APIConfig
	scanner    *wifi.Scanner
	collector  *collector.Collector
	logger     *slog.Logger
	startTime  time.Time
}

// New creates an API server over the given scanner and collector.
// Either may be nil; the corresponding endpoints then report the
// component as unavailable.
func New(cfg *config.APIConfig, scanner *wifi.Scanner, coll *collector.Collector) *Server {
	server := &Server{
		router:    mux.NewRouter(),
		config:    cfg,
		scanner:   scanner,
		collector: coll,
		logger:    logging.Default().With("component", "api"),
		startTime: time.Now(),
	}

	server.setupRoutes()
	server.setupMiddleware()

	server.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.ListenAddr, strconv.Itoa(cfg.Port)),
		Handler:      server.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server
}

// Start runs the server until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server",
		"address", s.httpServer.Addr,
		"read_timeout", s.httpServer.ReadTimeout,
		"write_timeout", s.httpServer.WriteTimeout)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped successfully")
	return nil
}

// Router returns the configured router, mainly for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Address returns the server's listen address.
func (s *Server) Address() string {
	return s.httpServer.Addr
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.healthHandler).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(
		metrics.Global().Registry(),
		promhttp.HandlerOpts{},
	)).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.statusHandler).Methods("GET")
	api.HandleFunc("/networks", s.networksHandler).Methods("GET")
	api.HandleFunc("/networks/strongest", s.strongestHandler).Methods("GET")
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.recoveryMiddleware)
	if s.config.RequestLogging {
		s.router.Use(s.loggingMiddleware)
	}
	if s.config.EnableCORS {
		s.router.Use(handlers.CORS(
			handlers.AllowedOrigins(s.config.CORSOrigins),
			handlers.AllowedHeaders([]string{"Content-Type"}),
			handlers.AllowedMethods([]string{"GET", "OPTIONS"}),
		))
	}
}

// healthHandler reports liveness and whether the scan loop is running.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	if s.scanner != nil {
		if s.scanner.Running() {
			checks["wifi_scanner"] = "running"
		} else {
			checks["wifi_scanner"] = "stopped"
		}
	} else {
		checks["wifi_scanner"] = "not configured"
	}

	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
		"checks":    checks,
	}
	s.writeJSON(w, r, http.StatusOK, response)
}

// statusHandler reports collector session, position, and cache size.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"service":   "radiomap",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
	}

	if s.collector != nil {
		x, y := s.collector.Position()
		response["session"] = s.collector.Session().String()
		response["position"] = map[string]int{"x": x, "y": y}
	}
	if s.scanner != nil {
		response["scanner_running"] = s.scanner.Running()
		response["networks_cached"] = s.scanner.CacheSize()
	}

	s.writeJSON(w, r, http.StatusOK, response)
}

// networksHandler returns the cached networks, optionally filtered by
// a min_signal query parameter.
func (s *Server) networksHandler(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, fmt.Errorf("wifi scanner not configured"))
		return
	}

	minSignal, err := s.queryParamInt(r, "min_signal", wifi.DefaultMinSignal)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid min_signal: %w", err))
		return
	}

	networks := s.scanner.Networks(minSignal)
	response := map[string]interface{}{
		"count":      len(networks),
		"min_signal": minSignal,
		"networks":   networks,
		"timestamp":  time.Now().UTC(),
	}
	s.writeJSON(w, r, http.StatusOK, response)
}

// strongestHandler returns the strongest cached networks, bounded by a
// count query parameter.
func (s *Server) strongestHandler(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, fmt.Errorf("wifi scanner not configured"))
		return
	}

	count, err := s.queryParamInt(r, "count", wifi.DefaultStrongestCount)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid count: %w", err))
		return
	}

	networks := s.scanner.StrongestNetworks(count)
	response := map[string]interface{}{
		"count":     len(networks),
		"networks":  networks,
		"timestamp": time.Now().UTC(),
	}
	s.writeJSON(w, r, http.StatusOK, response)
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	s.logger.Error("API error",
		"method", r.Method,
		"path", r.URL.Path,
		"status", statusCode,
		"error", err,
		"remote_addr", r.RemoteAddr)

	s.writeJSON(w, r, statusCode, ErrorResponse{
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response",
			"error", err,
			"path", r.URL.Path,
			"method", r.Method)
	}
}

func (s *Server) queryParamInt(r *http.Request, key string, defaultValue int) (int, error) {
	if value := r.URL.Query().Get(key); value != "" {
		return strconv.Atoi(value)
	}
	return defaultValue, nil
}

// Middleware.

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Panic in API handler",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", duration,
			"remote_addr", r.RemoteAddr)

		metrics.Global().IncrementHTTPRequests(r.Method, r.URL.Path, strconv.Itoa(wrapped.statusCode))
		metrics.Global().RecordHTTPDuration(r.Method, r.URL.Path, duration)
	})
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
