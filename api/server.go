/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/catalog          Consolidated catalog
  /api/loans/*          Borrow, confirm, return, overviews
  /api/bulk/*           Bulk delete/edit planning and execution
  /api/students/*       Administrative student operations
  /api/stats/*          Summary queries
  /api/settings         Circulation policy
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Catalog routes
		r.Get("/catalog", h.GetCatalog)

		// Loan lifecycle routes
		r.Route("/loans", func(r chi.Router) {
			r.Get("/", h.GetLoans)
			r.Get("/overdue", h.GetOverdueLoans)
			r.Post("/borrow", h.Borrow)
			r.Post("/confirm", h.ConfirmBorrow)
			r.Post("/return", h.Return)
		})

		// Bulk operation routes
		r.Route("/bulk", func(r chi.Router) {
			r.Post("/delete/plan", h.PlanDelete)
			r.Post("/delete", h.ExecuteDelete)
			r.Post("/edit/plan", h.PlanEdit)
			r.Post("/edit", h.ApplyEdit)
		})

		// Student admin routes
		r.Route("/students", func(r chi.Router) {
			r.Post("/{id}/penalty", h.SetPenalty)
		})

		// Stats routes
		r.Route("/stats", func(r chi.Router) {
			r.Get("/overview", h.GetOverview)
			r.Get("/students/{id}", h.GetStudentSummary)
		})

		// Policy routes
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)

		// Scenario routes (development/demo)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
