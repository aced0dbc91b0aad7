/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Builds the chi router: middleware, CORS for a separately hosted frontend,
  and the billing routes. Rendering lives elsewhere; this only serves JSON.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Request duration histogram, when metrics are enabled
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/clients/*        Client management
  /api/projects/*       Project management
  /api/entries/*        Ledger entries
  /api/invoices/*       Preview, issue, history, status
  /api/dashboard/*      Summary and receivables rollups
  /api/statements/*     Statement import
  /api/demo/load        Reset and seed demo data (dev only)
  /api/scenarios/*      Demo scenarios (dev only)
  /metrics              Prometheus scrape endpoint
  /healthz              Liveness
  /                     Route index (JSON)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
	"github.com/warp/billing-engine/logger"
)

// DefaultAllowedOrigins are the frontend dev and bundled origins.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// routeIndex is served at / so a bare GET shows what is mounted.
var routeIndex = map[string]string{
	"clients":     "/api/clients",
	"projects":    "/api/projects",
	"entries":     "/api/entries",
	"invoices":    "/api/invoices",
	"summary":     "/api/dashboard/summary",
	"receivables": "/api/dashboard/receivables",
	"scenarios":   "/api/scenarios",
	"health":      "/healthz",
}

// NewRouter creates a new router with all routes configured. With no
// origins given, DefaultAllowedOrigins apply.
func NewRouter(h *Handler, allowedOrigins ...string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(h.Log))
	r.Use(middleware.Recoverer)
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
			r.Put("/{id}", h.UpdateClient)
			r.Delete("/{id}", h.DeleteClient)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
			r.Put("/{id}", h.UpdateProject)
			r.Delete("/{id}", h.DeleteProject)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.CreateEntry)
			r.Get("/{id}", h.GetEntry)
			r.Put("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.IssueInvoice)
			r.Post("/preview", h.PreviewInvoice)
			r.Get("/next-number", h.NextInvoiceNumber)
			r.Get("/{id}", h.GetInvoice)
			r.Put("/{id}/status", h.UpdateInvoiceStatus)
		})

		r.Get("/dashboard/summary", h.GetSummary)
		r.Get("/dashboard/receivables", h.GetReceivables)
		r.Post("/statements/import", h.ImportStatement)
		r.Post("/demo/load", h.LoadDemo)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, routeIndex)
	})

	return r
}
