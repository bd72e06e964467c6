package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recollect-labs/recollect/internal/api"
	"github.com/recollect-labs/recollect/internal/api/handlers"
	"github.com/recollect-labs/recollect/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator  middleware.AuthValidator
	ContentHandler *handlers.ContentHandler
	SearchHandler  *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// shared links need no authentication
	r.Get("/share/{token}", cfg.ContentHandler.GetShared)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/content", func(r chi.Router) {
			r.Post("/", cfg.ContentHandler.Create)
			r.Get("/", cfg.ContentHandler.List)
			r.Get("/{id}", cfg.ContentHandler.Get)
			r.Put("/{id}", cfg.ContentHandler.Update)
			r.Delete("/{id}", cfg.ContentHandler.Delete)
			r.Post("/{id}/share", cfg.ContentHandler.Share)
			r.Delete("/{id}/share", cfg.ContentHandler.Unshare)
		})

		r.Post("/search-ai", cfg.SearchHandler.SearchAI)
	})

	return r
}
