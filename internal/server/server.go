// Package server exposes analyses and stored records over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/core"
	"github.com/joseph-ayodele/income-verifier/internal/export"
	"github.com/joseph-ayodele/income-verifier/internal/repository"
)

// Analyzer is satisfied by *core.Processor.
type Analyzer interface {
	Analyze(ctx context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error)
}

type Config struct {
	MaxUploadMB    int
	RequestTimeout time.Duration
}

type Server struct {
	analyzer Analyzer
	store    repository.ResultStore
	exporter *export.Service
	cfg      Config
	logger   *slog.Logger
	router   chi.Router
}

func New(analyzer Analyzer, store repository.ResultStore, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 25
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	s := &Server{
		analyzer: analyzer,
		store:    store,
		exporter: export.NewService(store, logger),
		cfg:      cfg,
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyses", s.handleAnalyze)
		r.Get("/records", s.handleListRecords)
		r.Get("/records/latest", s.handleLatestRecord)
		r.Get("/records/latest/export", s.handleExportLatest)
		r.Get("/records/latest/summary", s.handleLatestSummary)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs one line per request and carries chi's request id into
// the context under the key the rest of the code reads.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		ctx := common.WithRequestID(r.Context(), reqID)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		s.logger.Info("http.request",
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	n, err := s.store.Count(ctx)
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"records": n,
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, common.HTTPStatus(err), map[string]string{"error": err.Error()})
}
