// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/formatters"
	"passport-crosscheck/internal/paths"
	"passport-crosscheck/internal/version"

	// Import formatters to register them
	_ "passport-crosscheck/internal/formatters/csv"
	_ "passport-crosscheck/internal/formatters/json"
	_ "passport-crosscheck/internal/formatters/text"
	_ "passport-crosscheck/internal/formatters/yaml"
)

const (
	serviceName       = "passport-crosscheck"
	defaultMaxUpload  = 20 << 20
	multipartMemory   = 8 << 20
	portAttempts      = 10
	shutdownTimeout   = 10 * time.Second
	defaultWriteLimit = 2 * time.Minute
)

// CrossChecker runs one cross-check over a file on disk.
type CrossChecker interface {
	Run(ctx context.Context, imagePath string) *crosscheck.CrossCheckResult
}

// Server exposes the cross-check engine over HTTP.
type Server struct {
	checker        CrossChecker
	logger         *zap.Logger
	gatherer       prometheus.Gatherer
	validate       *validator.Validate
	maxUploadBytes int64
	tempDir        string
	writeTimeout   time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithMaxUploadMB limits the size of an uploaded document.
func WithMaxUploadMB(mb int64) Option {
	return func(s *Server) {
		if mb > 0 {
			s.maxUploadBytes = mb << 20
		}
	}
}

// WithTempDir sets where uploads are staged while they are processed.
func WithTempDir(dir string) Option {
	return func(s *Server) {
		if dir != "" {
			s.tempDir = dir
		}
	}
}

// WithWriteTimeout bounds the time to produce a response. It must cover
// both extraction timeouts.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewServer creates a web server around checker.
func NewServer(checker CrossChecker, opts ...Option) *Server {
	s := &Server{
		checker:        checker,
		logger:         zap.NewNop(),
		gatherer:       prometheus.DefaultGatherer,
		validate:       newFormValidator(),
		maxUploadBytes: defaultMaxUpload,
		tempDir:        paths.GetTempDir(),
		writeTimeout:   defaultWriteLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/crosscheck", s.handleCrossCheck)
		r.Get("/formats", s.handleFormats)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// Start listens on port, trying the following ports when it is taken, and
// serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	var lastError error
	for i := 0; i < portAttempts; i++ {
		current := port + i
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", current))
		if err != nil {
			lastError = err
			if i == 0 {
				fmt.Printf("Port %d is not available, trying alternative ports...\n", current)
			}
			continue
		}
		fmt.Printf("Passport cross-check API started on port %d\n", current)
		fmt.Printf("Local:     http://localhost:%d/api/v1/crosscheck\n", current)
		return s.serve(ctx, listener)
	}

	return fmt.Errorf("could not find an available port in range %d-%d\n"+
		"Last error: %v\n"+
		"Troubleshooting:\n"+
		"  1. Check if other services are using these ports\n"+
		"  2. Try a specific port with --port <number>\n"+
		"  3. Ensure you have permission to bind to the requested port", port, port+portAttempts-1, lastError)
}

func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	server := s.createSecureServer()
	s.logger.Info("web server listening", zap.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(listener) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("web server shutting down")
		return server.Shutdown(shutdownCtx)
	}
}

// createSecureServer creates an HTTP server with security timeouts
func (s *Server) createSecureServer() *http.Server {
	return &http.Server{
		Handler: s.Router(),
		// Timeout for reading request headers (prevents slow header attacks)
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Full()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    serviceName,
		"version":    info["version"],
		"build_info": info,
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"formats": formatters.GetSupportedFormats(),
		"default": defaultFormat,
	})
}

// errorResponse is the body of every non-result response.
type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

func (s *Server) sendError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.logger.Info("request rejected",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("error_code", code),
		zap.Int("status", status),
	)
	writeJSON(w, status, errorResponse{Success: false, Error: message, ErrorCode: code})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
