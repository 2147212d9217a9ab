package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulation", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Post("/run-set", h.HandleRunSet)
		r.Post("/wavefunction", h.HandleWavefunction)
		r.Post("/distribution", h.HandleDistribution)
		r.Post("/expectation", h.HandleExpectation)
		r.Get("/jobs", h.HandleListJobs)
		r.Get("/jobs/{id}", h.HandleGetJob)
		r.Get("/stats", h.HandleStats)
	})
}
