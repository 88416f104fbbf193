package server

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/lfreitas/financeiro/internal/finance"
	"github.com/lfreitas/financeiro/internal/receipt"
	"github.com/lfreitas/financeiro/internal/recognition"
)

// ObjectBucket serves stored receipt objects after signed-URL verification.
type ObjectBucket interface {
	Get(key string) ([]byte, error)
	VerifySignedQuery(key string, query url.Values) bool
}

// BasicAuth holds basic authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Server handles HTTP requests for the finance tracker.
type Server struct {
	finance    *finance.Service
	uploader   *receipt.Uploader
	recognizer recognition.Recognizer
	objects    ObjectBucket
	progress   *receipt.ProgressTracker
	basicAuth  BasicAuth
	language   string
	mux        *http.ServeMux
}

// Config collects the server's collaborators.
type Config struct {
	Finance    *finance.Service
	Uploader   *receipt.Uploader
	Recognizer recognition.Recognizer
	Objects    ObjectBucket
	BasicAuth  BasicAuth
	Language   string // OCR language hint, e.g. "por"
}

// NewServer creates a new Server with a default mux.
func NewServer(cfg Config) *Server {
	return NewServerWithMux(cfg, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing.
func NewServerWithMux(cfg Config, mux *http.ServeMux) *Server {
	s := &Server{
		finance:    cfg.Finance,
		uploader:   cfg.Uploader,
		recognizer: cfg.Recognizer,
		objects:    cfg.Objects,
		progress:   &receipt.ProgressTracker{},
		basicAuth:  cfg.BasicAuth,
		language:   cfg.Language,
		mux:        mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials.
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Financeiro"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux.
// Routes must be registered from most specific to least specific.
func (s *Server) registerRoutes() {
	// Receipt pipeline
	s.mux.HandleFunc("GET /api/receipts/progress", s.requireAuth(s.handleReceiptProgress))
	s.mux.HandleFunc("POST /api/receipts", s.requireAuth(s.handleUploadReceipt))

	// Signed object retrieval: the signature in the query is the
	// capability, so no basic auth here.
	s.mux.HandleFunc("GET /files/{key...}", s.handleGetObject)

	// Categories
	s.mux.HandleFunc("GET /api/categories", s.requireAuth(s.handleListCategories))
	s.mux.HandleFunc("POST /api/categories", s.requireAuth(s.handleCreateCategory))
	s.mux.HandleFunc("PUT /api/categories/{id}", s.requireAuth(s.handleUpdateCategory))
	s.mux.HandleFunc("DELETE /api/categories/{id}", s.requireAuth(s.handleDeleteCategory))

	// Accounts
	s.mux.HandleFunc("GET /api/accounts/{id}/balance", s.requireAuth(s.handleAccountBalance))
	s.mux.HandleFunc("GET /api/accounts", s.requireAuth(s.handleListAccounts))
	s.mux.HandleFunc("POST /api/accounts", s.requireAuth(s.handleCreateAccount))
	s.mux.HandleFunc("PUT /api/accounts/{id}", s.requireAuth(s.handleUpdateAccount))
	s.mux.HandleFunc("DELETE /api/accounts/{id}", s.requireAuth(s.handleDeleteAccount))

	// Entries
	s.mux.HandleFunc("GET /api/entries/export", s.requireAuth(s.handleExportEntries))
	s.mux.HandleFunc("GET /api/entries/{id}", s.requireAuth(s.handleGetEntry))
	s.mux.HandleFunc("GET /api/entries", s.requireAuth(s.handleListEntries))
	s.mux.HandleFunc("POST /api/entries", s.requireAuth(s.handleCreateEntry))
	s.mux.HandleFunc("PUT /api/entries/{id}", s.requireAuth(s.handleUpdateEntry))
	s.mux.HandleFunc("DELETE /api/entries/{id}", s.requireAuth(s.handleDeleteEntry))

	// Summaries
	s.mux.HandleFunc("GET /api/summary/monthly", s.requireAuth(s.handleMonthlySummary))
	s.mux.HandleFunc("GET /api/summary/annual", s.requireAuth(s.handleAnnualSummary))

	// Static HTML interface (register last as it's the catch-all)
	s.mux.HandleFunc("GET /index.html", s.requireAuth(s.handleIndex))
	s.mux.HandleFunc("GET /", s.requireAuth(s.handleIndex))
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
