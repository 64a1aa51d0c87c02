// Package api provides the HTTP server for the Pilot game engine.
// It exposes the session and swipe endpoints, read models, health and
// metrics, and a websocket event stream.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/session"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/health"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/metrics"
)

// Server is the Pilot HTTP API server.
type Server struct {
	sessions       *session.Manager
	hub            *EventHub
	health         *health.Checker // nil disables /api/health/checks
	metricsEnabled bool
	version        string
}

// NewServer creates a new API server. A nil hub disables the event stream.
func NewServer(sessions *session.Manager, hub *EventHub) *Server {
	return &Server{sessions: sessions, hub: hub, version: "dev"}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth sets the health checker reported by /api/health/checks.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// SetVersion sets the version reported by /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(requestMetrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
	})
	if s.health != nil {
		r.Get("/api/health/checks", s.handleHealthChecks)
	}
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// The websocket route sits outside the timeout middleware: it is long-lived.
	if s.hub != nil {
		r.Get("/api/sessions/{user}/events", s.hub.HandleEvents)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/api/scenario", s.handleScenario)
		r.Get("/api/scenarios", s.handleScenarios)
		r.Get("/api/leaderboard", s.handleLeaderboard)
		r.Get("/api/users/{user}/profile", s.handleProfile)
		r.Get("/api/users/{user}/achievements", s.handleAchievements)

		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Route("/{user}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleEndSession)
				r.Post("/swipes", s.handleSwipe)
				r.Post("/advance", s.handleAdvance)
				r.Post("/rewind", s.handleRewind)
				r.Post("/reset", s.handleReset)
				r.Get("/matches", s.handleMatches)
				r.Get("/challenge", s.handleChallenge)
				r.Get("/achievements", s.handleAchievements)
			})
		})
	})

	return r
}

func (s *Server) handleHealthChecks(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if !s.health.IsHealthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy": s.health.IsHealthy(),
		"checks":  s.health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestMetrics counts requests by chi route pattern so path parameters
// do not explode label cardinality.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}
