package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/smartchef/internal/recipe"
	"github.com/vbonduro/smartchef/internal/service"
)

type Server struct {
	service *service.ChefService
	// labels holds the custom label sets available to POST /parse, on top
	// of the built-in ones.
	labels map[string]recipe.LabelSet
	mux    *http.ServeMux
	logger *slog.Logger
}

func NewServer(svc *service.ChefService, labels map[string]recipe.LabelSet, logger *slog.Logger) *Server {
	s := &Server{
		service: svc,
		labels:  labels,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /pantries", s.handleListPantries)
	s.mux.HandleFunc("POST /pantries", s.handleCreatePantry)
	s.mux.HandleFunc("GET /pantries/{id}", s.handleGetPantry)
	s.mux.HandleFunc("DELETE /pantries/{id}", s.handleDeletePantry)
	s.mux.HandleFunc("POST /pantries/{id}/photos", s.handleUploadPhoto)
	s.mux.HandleFunc("GET /pantries/{id}/photo", s.handleGetPhoto)
	s.mux.HandleFunc("POST /pantries/{id}/ingredients", s.handleAddIngredients)
	s.mux.HandleFunc("DELETE /pantries/{id}/ingredients/{name}", s.handleRemoveIngredient)

	s.mux.HandleFunc("POST /pantries/{id}/suggestions", s.handleRecommend)
	s.mux.HandleFunc("GET /pantries/{id}/suggestions", s.handleListSuggestions)
	s.mux.HandleFunc("GET /suggestions/{id}", s.handleGetSuggestion)

	s.mux.HandleFunc("GET /search", s.handleSearch)
	s.mux.HandleFunc("GET /media/{key...}", s.handleGetMedia)
	s.mux.HandleFunc("POST /parse", s.handleParse)
}

// securityHeaders sets hardening headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; media-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe runs the API. Write timeouts are generous because a
// recommendation may wait on chat, image and speech models in turn.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
