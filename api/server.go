/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Wires the read-only dashboard API: URLs to handlers, middleware stack,
  artifact file serving. The server is a convenience surface over the
  same files and journal the CLI maintains - it is single-tenant and
  carries no state of its own.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/ledger/*   Ledger views
  /api/runs/*     Run journal views
  /api/update     On-demand update trigger
  /output/*       Forecast/report artifacts (static)

SECURITY NOTE:
  No authentication. The server is meant for a single owner on a
  private network.
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/ledger", func(r chi.Router) {
			r.Get("/", h.ListLedger)
			r.Get("/summary", h.LedgerSummary)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Get("/incomplete", h.IncompleteDays)
		})

		r.Post("/update", h.TriggerUpdate)
	})

	// Forecast and report artifacts
	if h.OutputDir != "" {
		fs := http.StripPrefix("/output/", http.FileServer(http.Dir(h.OutputDir)))
		r.Get("/output/*", fs.ServeHTTP)
	}

	return r
}
