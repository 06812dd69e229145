// Package http implements the REST API for the advisor onboarding
// pipeline: pre-registration intake, exam serving and grading, score
// entry, finalization, and group assignment.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// ShutdownTimeout - grace period for in-flight requests on shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server wraps the stdlib HTTP server with routing and lifecycle.
type Server struct {
	config   Config
	handlers *Handlers
	log      *logger.Logger
	srv      *http.Server
}

// NewServer creates the server and registers all routes.
func NewServer(cfg Config, handlers *Handlers, log *logger.Logger) *Server {
	s := &Server{config: cfg, handlers: handlers, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handlers.Health)

	mux.HandleFunc("POST /api/v1/preregistrations", s.handlers.CreatePreregistration)
	mux.HandleFunc("GET /api/v1/preregistrations", s.handlers.ListPreregistrations)
	mux.HandleFunc("POST /api/v1/preregistrations/{id}/status", s.handlers.TransitionStatus)
	mux.HandleFunc("POST /api/v1/preregistrations/{id}/scores", s.handlers.RecordScores)
	mux.HandleFunc("POST /api/v1/preregistrations/{id}/exams/{type}/form", s.handlers.GenerateExamForm)
	mux.HandleFunc("POST /api/v1/preregistrations/{id}/exams/{type}/submission", s.handlers.SubmitExam)
	mux.HandleFunc("POST /api/v1/preregistrations/{id}/finalize", s.handlers.Finalize)
	mux.HandleFunc("PUT /api/v1/preregistrations/{id}/groups", s.handlers.SetGroups)
	mux.HandleFunc("GET /api/v1/preregistrations/{id}/assessment", s.handlers.GetAssessmentDetail)
	mux.HandleFunc("GET /api/v1/preregistrations/{id}/history", s.handlers.ListHistory)
	mux.HandleFunc("GET /api/v1/groups/counts", s.handlers.GroupCounts)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.recoverMiddleware(s.loggingMiddleware(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Start begins serving. Blocks until the listener fails or Shutdown.
func (s *Server) Start() error {
	s.log.Info("http server starting", logger.F("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.log.Info("request handled",
			logger.F("method", r.Method),
			logger.F("path", r.URL.Path),
			logger.F("status", rw.status),
			logger.F("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered",
					logger.F("path", r.URL.Path),
					logger.F("panic", fmt.Sprintf("%v", rec)),
					logger.F("stack", string(debug.Stack())),
				)
				writeError(w, http.StatusInternalServerError, "internal", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Data  interface{} `json:"data,omitempty"`
	Error *errorBody  `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorBody{Code: code, Message: message}})
}

// writeDomainError maps domain errors onto HTTP statuses. A not-approved
// finalization never reaches this path: it is a result, not an error.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case shared.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyExists(err) || shared.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
