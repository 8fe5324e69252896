// Package demo serves synthetic pages of configurable height for scroll
// tracking runs, plus a read-out of the visitor's stored progress.
package demo

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/percent-page-viewed/internal/clock"
	"github.com/JakeFAU/percent-page-viewed/internal/clock/system"
	"github.com/JakeFAU/percent-page-viewed/internal/metrics"
	"github.com/JakeFAU/percent-page-viewed/internal/storage/httpcookie"
	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

const (
	defaultPageHeight = 4000
	maxPageHeight     = 1_000_000
)

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Slug}}</title>
<style>body{margin:0}#content{height:{{.Height}}px;background:linear-gradient(#fff,#ccc)}</style>
</head>
<body>
<h1>{{.Slug}}</h1>
<div id="content"></div>
</body>
</html>
`))

// Options configures the demo server.
type Options struct {
	StorageKey    string
	DefaultHeight int
	Metrics       bool
	Clock         clock.Clock
}

// Server wires the demo routes.
type Server struct {
	router chi.Router
	opts   Options
	logger *zap.Logger
}

// ProgressResponse is the body of GET /v1/progress.
type ProgressResponse struct {
	Tracked  bool             `json:"tracked"`
	Progress tracker.Progress `json:"progress"`
}

// NewServer constructs a Server with middleware and routes.
func NewServer(opts Options, logger *zap.Logger) *Server {
	if opts.StorageKey == "" {
		opts.StorageKey = tracker.DefaultStorageKey
	}
	if opts.DefaultHeight <= 0 {
		opts.DefaultHeight = defaultPageHeight
	}
	if opts.Clock == nil {
		opts.Clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	if opts.Metrics {
		r.Use(metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Get("/healthz", s.healthz)
	r.Get("/pages/{slug}", s.page)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/progress", s.getProgress)
		r.Delete("/progress", s.clearProgress)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// PageURL builds the address of a demo page relative to baseURL.
func PageURL(baseURL, slug string, height int) string {
	return fmt.Sprintf("%s/pages/%s?height=%d", baseURL, slug, height)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	height := s.opts.DefaultHeight
	if raw := r.URL.Query().Get("height"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxPageHeight {
			s.writeError(w, http.StatusBadRequest, "height must be a positive integer")
			return
		}
		height = parsed
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Slug   string
		Height int
	}{Slug: chi.URLParam(r, "slug"), Height: height}
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page failed", zap.Error(err))
	}
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	store := tracker.NewRecordStore(httpcookie.New(nil, r), s.opts.StorageKey, s.opts.Clock)
	p, err := store.Read(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "read progress failed")
		return
	}
	if !p.Tracked() {
		s.writeJSON(w, http.StatusOK, ProgressResponse{})
		return
	}
	s.writeJSON(w, http.StatusOK, ProgressResponse{Tracked: true, Progress: p})
}

func (s *Server) clearProgress(w http.ResponseWriter, r *http.Request) {
	store := tracker.NewRecordStore(httpcookie.New(w, r), s.opts.StorageKey, s.opts.Clock)
	if err := store.Clear(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, "clear progress failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", w.Header().Get("X-Request-ID")),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
