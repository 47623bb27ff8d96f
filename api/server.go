/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for a dashboard

ROUTE GROUPS:
  /api/job-sessions/*          Job sessions
  /api/reservation-sessions/*  Reservation sessions
  /api/jobs/*                  Jobs
  /api/reservations/*          Reservations
  /api/templates/*             Job and reservation templates
  /api/admin/*                 Schema setup and reset
  /api/scenarios/*             Demo data

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		// Session routes
		r.Route("/job-sessions", func(r chi.Router) {
			r.Get("/", h.ListJobSessions)
			r.Get("/{name}", h.GetJobSession)
		})
		r.Route("/reservation-sessions", func(r chi.Router) {
			r.Get("/", h.ListReservationSessions)
			r.Get("/{name}", h.GetReservationSession)
		})

		// Job routes
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Get("/{id}", h.GetJob)
			r.Get("/{id}/status", h.GetJobStatus)
			r.Get("/{id}/command", h.GetJobCommand)
			r.Get("/{id}/wait", h.WaitJob)
		})

		// Reservation routes
		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", h.ListReservations)
			r.Get("/{id}", h.GetReservation)
		})

		// Template routes
		r.Route("/templates", func(r chi.Router) {
			r.Get("/jobs", h.ListJobTemplates)
			r.Get("/jobs/{id}", h.GetJobTemplate)
			r.Get("/reservations", h.ListReservationTemplates)
			r.Get("/reservations/{id}", h.GetReservationTemplate)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/setup", h.Setup)
			r.Post("/reset", h.Reset)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	})

	return r
}
