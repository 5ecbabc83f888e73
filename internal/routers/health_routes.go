package routers

import (
	"github.com/go-chi/chi/v5"

	"pairprog/internal/api"
)

func HealthRoutes(router chi.Router, h *api.Handlers) {
	router.Get("/healthz", h.Health)
	router.Get("/readyz", h.Ready)
}
