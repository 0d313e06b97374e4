package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"psl-dashboard/internal/handlers"
	"psl-dashboard/internal/metrics"
	"psl-dashboard/internal/middleware"
)

const (
	ReadTimeout = 15 * time.Second
	// SeedTimeout bounds a seeding run, which walks every team of a season.
	SeedTimeout = 10 * time.Minute
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Resources *handlers.ResourceHandler
	Cache     *handlers.CacheAdmin
	Seed      *handlers.SeedHandler
	Ready     http.HandlerFunc
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, h Handlers) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())             // panic recovery
	r.Use(middleware.MaxBodySize(512 * 1024)) // 512 KB max body

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(ReadTimeout))

			r.Get("/standings", h.Resources.Standings)
			r.Get("/players", h.Resources.Players)
			r.Get("/fixtures", h.Resources.Fixtures)
			r.Get("/teams", h.Resources.Teams)
			r.Get("/overview", h.Resources.Overview)

			r.Get("/cache", h.Cache.Stats)
			r.Delete("/cache", h.Cache.Clear)

			r.Get("/seed/quota", h.Seed.Quota)
		})

		r.With(middleware.Timeout(SeedTimeout)).Post("/seed/{resource}", h.Seed.Seed)
	})

	r.Get("/healthz", handlers.Healthz)
	if h.Ready != nil {
		r.Get("/readyz", h.Ready)
	}

	r.Handle("/metrics", metrics.Handler())
}
