// ABOUTME: HTTP server exposing the vulnerability search tools, health, and metrics endpoints.
// ABOUTME: Wires routes, security headers, and request logging around the record store.

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jfeddern/VulnSearch/internal/cache"
	"github.com/jfeddern/VulnSearch/internal/metrics"
	"github.com/jfeddern/VulnSearch/internal/types"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Tool names as exposed to callers
const (
	ToolSearch  = "search_vulnerabilities"
	ToolDetails = "get_vulnerability_details"
)

// JSON-RPC style error codes reported in error bodies
const (
	CodeInvalidParams = -32602
	CodeInternalError = -32603
)

// maxBodyBytes bounds tool request bodies
const maxBodyBytes = 1 << 20

// RecordSource is the read side of the record store
type RecordSource interface {
	Search(query string, limit int) []types.Record
	LookupByID(id string) (types.Record, bool)
}

// SourceFunc returns the record store, loading it if needed
type SourceFunc func() (RecordSource, error)

type Server struct {
	source  SourceFunc
	cache   *cache.SearchCache
	metrics *metrics.MetricsHandler
	logger  *logrus.Logger
	router  *mux.Router
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewServer(source SourceFunc, searchCache *cache.SearchCache, metricsHandler *metrics.MetricsHandler, logger *logrus.Logger) *Server {
	s := &Server{
		source:  source,
		cache:   searchCache,
		metrics: metricsHandler,
		logger:  logger,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.securityMiddleware)

	// Tool calls
	s.router.HandleFunc("/tools/"+ToolSearch, s.handleSearch).Methods(http.MethodPost)
	s.router.HandleFunc("/tools/"+ToolDetails, s.handleDetails).Methods(http.MethodPost)

	// Read-only conveniences for the same operations
	s.router.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/vulnerabilities/{id}", s.handleDetails).Methods(http.MethodGet, http.MethodHead)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet, http.MethodHead)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Security headers
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'none'; object-src 'none'; frame-ancestors 'none'")

		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote_ip":  r.RemoteAddr,
			"user_agent": r.UserAgent(),
		}).Debug("HTTP request received")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	src, err := s.source()
	if err != nil {
		s.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	body := map[string]interface{}{"status": "ok"}
	if counter, ok := src.(interface{ Len() int }); ok {
		body["records"] = counter.Len()
	}
	s.writeJSON(w, r, http.StatusOK, body)
}

func (s *Server) observe(tool, outcome string, start time.Time) {
	s.metrics.ObserveToolCall(tool, outcome, time.Since(start))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status, code int, message string) {
	s.writeJSON(w, r, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	// Pretty print if requested
	if r.URL.Query().Get("pretty") != "" {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}
