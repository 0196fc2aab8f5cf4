package api

import (
	"time"

	"budgee-insights/src/db"
	"budgee-insights/src/handlers"
	"budgee-insights/src/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Options struct {
	JWTSecret []byte
	// Cache may be nil.
	Cache *db.ReadCache
	// RateLimit is requests per second across all callers; zero disables it.
	RateLimit float64
	Burst     int
}

func NewRouter(store db.Store, opts Options, log zerolog.Logger) *chi.Mux {
	log = log.With().Str("component", "api").Logger()

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LoggingMiddleware(log))
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit) + 1
		}
		r.Use(middleware.RateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimit), burst), log))
	}
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.ReadOnlyMiddleware)

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.JWTAuthMiddleware(opts.JWTSecret), middleware.SameUserMiddleware).Group(func(r chi.Router) {
			r.Get("/users/{user_id}/features/{window}", handlers.GetFeatures(store, opts.Cache, log))
			r.Get("/users/{user_id}/persona/{window}", handlers.GetPersona(store, opts.Cache, log))
		})
	})

	return r
}
