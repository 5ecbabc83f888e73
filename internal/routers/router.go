package routers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pairprog/internal/api"
	"pairprog/internal/metrics"
)

const requestTimeout = 60 * time.Second

// New builds the HTTP surface. Room, suggestion and websocket routes are
// mounted under prefix; health and metrics always live at the root.
func New(h *api.Handlers, allowedOrigins []string, prefix string) http.Handler {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Logger, chimiddleware.Recoverer, metrics.Middleware)

	HealthRoutes(router, h)
	router.Handle("/metrics", metrics.Handler())

	prefix = "/" + strings.Trim(prefix, "/")
	router.Mount(prefix, CollabRoutes(h))

	return router
}
