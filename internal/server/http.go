package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mapview/internal/logger"
)

// SetupRoutes returns the debug HTTP router: Prometheus metrics, a health
// check and the session registry.
func SetupRoutes(s *SSHServer, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, s.Sessions())
		})
		r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid session id")
				return
			}
			info, ok := s.Session(id)
			if !ok {
				respondError(w, http.StatusNotFound, "Session not found")
				return
			}
			respondJSON(w, http.StatusOK, info)
		})
		r.Get("/scene", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]any{
				"name":   s.scene.Name,
				"width":  s.scene.Width,
				"height": s.scene.Height,
				"faces":  s.faces.Len(),
			})
		})
	})

	return r
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Warn("encode JSON response")
	}
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
