package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/clanhub/api/internal/api/handlers"
	mw "github.com/clanhub/api/internal/api/middleware"
	"github.com/clanhub/api/internal/metrics"
)

type Dependencies struct {
	ClansHandler  *handlers.ClansHandler
	HealthHandler *handlers.HealthHandler
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer

	// HMACSecret enables bearer auth on POST and DELETE when non-empty.
	HMACSecret     []byte
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy installs chi's RealIP so the limiter sees the forwarded client address.
	TrustProxy bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Metrics(dep.Metrics))
	r.Use(mw.Recovery)
	r.Use(mw.CORS)
	if dep.TrustProxy {
		r.Use(chimid.RealIP)
	}
	if dep.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
	}
	r.Use(chimid.Compress(5))

	r.Get("/health", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)
	if dep.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(dep.Gatherer))
	}

	// API documentation
	r.Get("/openapi.json", serveOpenAPI)
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/openapi.json"),
	))

	r.Route("/clans", func(cr chi.Router) {
		cr.Get("/", dep.ClansHandler.List)
		cr.Get("/search", dep.ClansHandler.Search)
		cr.Get("/{id}", dep.ClansHandler.Get)

		cr.Group(func(mut chi.Router) {
			if len(dep.HMACSecret) > 0 {
				mut.Use(mw.Auth(dep.HMACSecret))
			}
			mut.Post("/", dep.ClansHandler.Create)
			mut.Delete("/{id}", dep.ClansHandler.Delete)
		})
	})

	return r
}
