/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the kiosk frontends

ROUTE GROUPS:
  /api/punches/*    Punch recording, correction, deletion, listing
  /api/reports/*    Monthly reports
  /api/units/*      Unit CRUD + daily listing
  /api/employees/*  Employee CRUD + leave spans

SECURITY NOTE:
  No authentication middleware. The engine sits behind the municipality's
  reverse proxy, which terminates auth.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Punch routes
		r.Route("/punches", func(r chi.Router) {
			r.Post("/", h.CreatePunch)
			r.Get("/", h.ListPunches)
			r.Put("/{id}", h.CorrectPunch)
			r.Delete("/{id}", h.DeletePunch)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/employee", h.EmployeeReport)
			r.Get("/unit", h.UnitReport)
		})

		// Unit routes
		r.Route("/units", func(r chi.Router) {
			r.Get("/", h.ListUnits)
			r.Post("/", h.CreateUnit)
			r.Delete("/{id}", h.DeleteUnit)
			r.Get("/{id}/punches/today", h.UnitToday)
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
			r.Get("/{id}/leaves", h.ListLeaves)
			r.Post("/{id}/leaves", h.CreateLeave)
			r.Delete("/{id}/leaves/{leaveID}", h.DeleteLeave)
		})
	})

	return r
}
