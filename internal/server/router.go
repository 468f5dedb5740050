package server

import (
	"net/http"
	"time"

	"github.com/aura-labs/aura/internal/api"
	"github.com/aura-labs/aura/internal/api/handlers"
	"github.com/aura-labs/aura/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	APIToken     string
	QueryHandler *handlers.QueryHandler
	StatsHandler *handlers.StatsHandler
	LogsHandler  *handlers.LogsHandler

	// RequestTimeout is the overall deadline applied to every request
	// context. Zero disables it.
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIToken))

		r.Post("/hackrx/run", cfg.QueryHandler.Run)
		r.Get("/stats", cfg.StatsHandler.Get)
		r.Get("/logs", cfg.LogsHandler.List)
	})

	return r
}
