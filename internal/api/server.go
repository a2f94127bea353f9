// Package api exposes the orchestrator and its capabilities over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"query-orchestrator/internal/common/validation"
	"query-orchestrator/internal/models"
	"query-orchestrator/pkg/registry"
)

const (
	RequestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Orchestrator interface {
	Orchestrate(ctx context.Context, text, tenant string) *models.Response
}

type Visualizer interface {
	Visualize(ctx context.Context, chartType models.ChartType, title string) models.Result[models.VisualizationOutput]
}

type DocumentFetcher interface {
	FetchByIDs(ctx context.Context, ids []string, tenant string) ([]models.Document, error)
}

type Validator interface {
	ValidateJSON(taskType string, body []byte) *validation.ValidationResult
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Config struct {
	Address         string
	DefaultTenant   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	config       Config
	orchestrator Orchestrator
	visualizer   Visualizer
	documents    DocumentFetcher
	validator    Validator
	registry     *registry.ActivityRegistry
	checks       map[string]ReadinessCheck
	logger       Logger
}

func NewServer(
	config Config,
	orchestrator Orchestrator,
	visualizer Visualizer,
	documents DocumentFetcher,
	validator Validator,
	reg *registry.ActivityRegistry,
	log Logger,
) *Server {
	if config.DefaultTenant == "" {
		config.DefaultTenant = models.DefaultTenant
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		config:       config,
		orchestrator: orchestrator,
		visualizer:   visualizer,
		documents:    documents,
		validator:    validator,
		registry:     reg,
		checks:       make(map[string]ReadinessCheck),
		logger:       log,
	}
}

// AddReadinessCheck registers a check consulted by /ready.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.checks[name] = check
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("POST /api/chart", s.handleChart)
	mux.HandleFunc("POST /api/documents", s.handleDocuments)
	mux.HandleFunc("GET /api/capabilities", s.handleCapabilities)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return requestIDMiddleware(s.loggingMiddleware(mux))
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("HTTP server listening", map[string]interface{}{"address": s.config.Address})

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
			return
		}
		s.logger.Info("request handled", map[string]interface{}{
			"requestId":   RequestID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}
