package main

import (
	"github.com/go-chi/chi/v5"

	"github.com/formbricks/ragcore/internal/api/middleware"
)

// chiRouter mounts every route named in SPEC_FULL §6: ASK and the health
// check (and /metrics, when enabled) are public; INSPECT SESSION, FEEDBACK,
// CHUNK EDIT, WORKFLOW SEARCH, and STATS sit behind the admin bearer token.
func chiRouter(p serverParams) chi.Router {
	router := chi.NewRouter()

	router.Get("/health", p.health.Check)

	if p.metricsHandler != nil {
		router.Handle("/metrics", p.metricsHandler)
	}

	router.Route("/v1", func(r chi.Router) {
		r.Post("/ask", p.ask.Ask)

		r.Group(func(admin chi.Router) {
			admin.Use(middleware.Auth(p.cfg.APIKey))

			admin.Get("/sessions", p.sessions.List)
			admin.Get("/sessions/{id}", p.sessions.Get)
			admin.Post("/sessions/{id}/feedback", p.feedback.Submit)

			admin.Post("/feedback/bulk", p.feedback.Bulk)

			admin.Post("/chunks", p.chunks.Create)
			admin.Patch("/chunks/{id}", p.chunks.AdjustWeight)

			admin.Post("/workflow-memories/search", p.workflow.Search)

			admin.Get("/stats", p.stats.Get)
		})
	})

	return router
}
