// Package api provides the HTTP server for TrendScout.
// It exposes the task submission REST API, user registration and
// token-based authentication, and operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trendscout-net/trendscout/internal/app/tasks"
	"github.com/trendscout-net/trendscout/internal/security"
)

// UserStore persists API principals. Implemented by the sqlite layer.
type UserStore interface {
	CreateUser(u security.User) error
	GetUserByEmail(email string) (*security.User, error)
	GetUser(id string) (*security.User, error)
}

// Pinger reports liveness of a backing service for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the TrendScout HTTP API server.
type Server struct {
	svc            *tasks.Service
	users          UserStore
	issuer         *security.TokenIssuer
	metricsEnabled bool
	checks         map[string]Pinger // component name -> liveness probe
}

// NewServer creates a new API server.
func NewServer(svc *tasks.Service, users UserStore, issuer *security.TokenIssuer) *Server {
	return &Server{
		svc:    svc,
		users:  users,
		issuer: issuer,
		checks: make(map[string]Pinger),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// AddHealthCheck registers a named backing-service probe for /health.
func (s *Server) AddHealthCheck(name string, p Pinger) { s.checks[name] = p }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": "0.1.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Everything below requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/users/me", s.handleMe)
			r.Post("/tasks", s.handleCreateTask)
			r.Get("/tasks", s.handleListTasks)
			r.Get("/tasks/{id}", s.handleGetTask)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(s.checks))
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			components[name] = "ok"
		}
	}

	body := map[string]interface{}{
		"status":     "ok",
		"components": components,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
