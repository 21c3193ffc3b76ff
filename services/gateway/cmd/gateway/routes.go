package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/justwatch-gateway/internal/platform/analytics"
	"github.com/example/justwatch-gateway/internal/platform/auth"
	"github.com/example/justwatch-gateway/internal/platform/httpserver"
	gwhandlers "github.com/example/justwatch-gateway/services/gateway/internal/handlers"
	gwhttp "github.com/example/justwatch-gateway/services/gateway/internal/http"
	"github.com/example/justwatch-gateway/services/gateway/internal/justwatch"
)

type routerDeps struct {
	Source    justwatch.Source
	Refresher gwhandlers.Refresher
	Cache     gwhandlers.Cache
	Publisher *analytics.Publisher
	Logger    *zap.Logger
	Verifier  auth.JWTVerifier

	AllowedOrigins string
	ReadyFunc      func() error
	// RateLimitRPS of zero disables the per-IP limiter.
	RateLimitRPS   float64
	RateLimitBurst int
}

// newRouter builds the gateway mux. Health endpoints sit outside the rate
// limiter; the locale refresh route requires an admin token.
func newRouter(d routerDeps) chi.Router {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		AllowedOrigins: d.AllowedOrigins,
		Logger:         log,
		ReadyFunc:      d.ReadyFunc,
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("justwatch gateway"))
	})

	r.Group(func(r chi.Router) {
		if d.RateLimitRPS > 0 {
			r.Use(gwhttp.NewRateLimiter(d.RateLimitRPS, d.RateLimitBurst).Middleware)
		}

		r.Get("/search", gwhandlers.Search(d.Source, d.Publisher, log))

		r.Route("/v1", func(r chi.Router) {
			r.Get("/search", gwhandlers.SearchTitles(d.Source, d.Publisher, log))
			r.Get("/title-ids", gwhandlers.TitleIDs(d.Source, log))

			r.Get("/providers", gwhandlers.Providers(d.Source, d.Cache, log))
			r.Get("/genres", gwhandlers.Genres(d.Source, d.Cache, log))
			r.Get("/certifications", gwhandlers.Certifications(d.Source, d.Cache, log))

			r.Get("/titles/{type}/{id}", gwhandlers.Title(d.Source, log))
			r.Get("/titles/{type}/{id}/showtimes", gwhandlers.Showtimes(d.Source, log))
			r.Get("/seasons/{id}", gwhandlers.Season(d.Source, log))
			r.Get("/persons/{id}", gwhandlers.Person(d.Source, log))
			r.Get("/shows/{id}/episodes", gwhandlers.Episodes(d.Source, log))

			r.Get("/upcoming", gwhandlers.Upcoming(d.Source, log))

			r.Get("/locale", gwhandlers.Locale(d.Source))

			// Admin
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireUser(d.Verifier))
				r.Use(auth.RequireAdmin)
				r.Post("/locale/refresh", gwhandlers.RefreshLocale(d.Source, d.Refresher, d.Publisher, log))
			})
		})
	})
	return r
}
