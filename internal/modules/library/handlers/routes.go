package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all circuit library routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/circuits", func(r chi.Router) {
		r.Post("/", h.HandleSaveCircuit)
		r.Get("/", h.HandleListCircuits)
		r.Get("/{id}", h.HandleGetCircuit)
		r.Put("/{id}", h.HandleUpdateCircuit)
		r.Delete("/{id}", h.HandleDeleteCircuit)
		r.Post("/{id}/bind", h.HandleBindCircuit)
		r.Post("/{id}/append", h.HandleAppendToCircuit)
		r.Post("/{id}/split", h.HandleSplitCircuit)
	})
}
