package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Lifecycle events
		r.Post("/events", h.HandleEvent)

		// Sessions
		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{id}", h.GetSession)
		r.Get("/sessions/{id}/override", h.GetOverride)
		r.Post("/sessions/{id}/override", h.SetOverride)
		r.Put("/sessions/{id}/override", h.SetOverride)
		r.Delete("/sessions/{id}/override", h.ClearOverride)
		r.Get("/sessions/{id}/audit", h.SessionAudit)

		// Reviewers
		r.Get("/reviewers", h.ListReviewers)

		// Audit trail
		r.Get("/audit", h.QueryAudit)
	})
}
