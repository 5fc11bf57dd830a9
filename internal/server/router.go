package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mentanova-ai/mentanova/internal/api"
	"github.com/mentanova-ai/mentanova/internal/api/handlers"
	"github.com/mentanova-ai/mentanova/internal/api/middleware"
)

type RouterConfig struct {
	RetrievalHandler *handlers.RetrievalHandler
	DocumentHandler  *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/retrieve", cfg.RetrievalHandler.Retrieve)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
		r.Get("/{id}/download", cfg.DocumentHandler.GetDownloadURL)
		r.Post("/{id}/retrieve", cfg.RetrievalHandler.RetrieveFromDocument)
	})

	return r
}
