package router

import (
	"borneostock-sync/internal/handler"
	"borneostock-sync/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler      *handler.Handler
	ItemsHandler *handler.ItemsHandler
	SyncHandler  *handler.SyncHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
		}

		if cfg.SyncHandler != nil {
			r.Route("/sync", func(r chi.Router) {
				r.Get("/status", cfg.SyncHandler.Status)
				r.Post("/trigger", cfg.SyncHandler.Trigger)
			})
		}

		if cfg.ItemsHandler != nil {
			r.Route("/items", func(r chi.Router) {
				r.Get("/", cfg.ItemsHandler.List)
				r.Post("/", cfg.ItemsHandler.Create)
				r.Get("/watch", cfg.ItemsHandler.Watch)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.ItemsHandler.Get)
					r.Put("/", cfg.ItemsHandler.Update)
					r.Delete("/", cfg.ItemsHandler.Delete)
					r.Post("/stock", cfg.ItemsHandler.AdjustStock)
				})
			})
		}
	})

	return r
}
