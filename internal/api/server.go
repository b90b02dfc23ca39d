// Package api provides the HTTP server for gisstore.
// Training pipelines upload model snapshots here and read back artifact stats.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/maxent-labs/gisstore/internal/domain"
	"github.com/maxent-labs/gisstore/internal/health"
)

// Server is the gisstore HTTP API server.
type Server struct {
	writer         domain.StructuralWriter
	verifier       domain.ArtifactVerifier
	storeDir       string
	maxBodyBytes   int64
	health         *health.Checker // nil if not set
	metricsEnabled bool
	logger         *zap.Logger
	locks          nameLocks
}

// NewServer creates a new API server persisting into storeDir.
func NewServer(writer domain.StructuralWriter, verifier domain.ArtifactVerifier, storeDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		writer:       writer,
		verifier:     verifier,
		storeDir:     storeDir,
		maxBodyBytes: 256 << 20,
		logger:       logger.Named("api"),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth attaches a health checker whose statuses /health reports.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// SetMaxBodyMB caps snapshot upload size.
func (s *Server) SetMaxBodyMB(mb int) {
	if mb > 0 {
		s.maxBodyBytes = int64(mb) << 20
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/v1/models", func(r chi.Router) {
		r.Get("/", s.handleListModels)
		r.Put("/{name}", s.handlePutModel)
		r.Get("/{name}", s.handleGetModel)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if s.health != nil {
		resp.Checks = s.health.Statuses()
		if !s.health.IsHealthy() {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

type healthResponse struct {
	Status string          `json:"status"`
	Checks []health.Status `json:"checks,omitempty"`
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response. kind is an ErrorKind string.
func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    kind,
		},
	})
}

// ─── Per-name locking ───────────────────────────────────────────────────────

// nameLocks serialises writes to the same artifact name. Entries are never
// evicted; the set of names is bounded by the store's contents.
type nameLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *nameLocks) lock(name string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
