package routers

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"pairprog/internal/api"
	"pairprog/internal/middleware"
	"pairprog/internal/models"
)

// CollabRoutes registers the room, suggestion and websocket endpoints.
// Websocket sessions outlive any request timeout, so the timeout only
// wraps the REST group.
func CollabRoutes(h *api.Handlers) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))
		r.Post("/rooms", h.CreateRoom)
		r.Get("/rooms/{roomId}", h.GetRoom)
		r.With(middleware.ValidateRequest[models.SuggestRequest]()).Post("/autocomplete", h.Suggest)
	})

	r.Get("/ws/{roomId}/{userId}", h.CollabWS)
	return r
}
