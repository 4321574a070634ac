package api

import (
	"net/http"

	"github.com/Togather-Foundation/ewm/internal/api/handlers"
	"github.com/Togather-Foundation/ewm/internal/api/middleware"
	"github.com/Togather-Foundation/ewm/internal/config"
	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// EventService is the whole event lifecycle as the HTTP layer sees it.
type EventService interface {
	handlers.OwnerEvents
	handlers.ModerationEvents
	handlers.CatalogueEvents
}

// Services are the domain services behind the main API.
type Services struct {
	Events     EventService
	Requests   handlers.Requests
	Users      handlers.Users
	Categories handlers.Categories
	// DB backs the readiness checks; nil reports the database as down.
	DB handlers.Querier
}

// Router is an HTTP handler plus the background parts it owns.
type Router struct {
	Handler     http.Handler
	RateLimiter *middleware.RateLimiter
}

// Close stops the rate limiter cleanup.
func (r *Router) Close() {
	if r.RateLimiter != nil {
		r.RateLimiter.Stop()
	}
}

// NewRouter builds the main service API: the admin, private and public
// routes plus health, metrics and version endpoints.
func NewRouter(cfg config.Config, logger zerolog.Logger, svc Services, build BuildInfo) *Router {
	limiter := middleware.NewRateLimiter(cfg.RateLimit)

	admin := handlers.NewAdminHandler(svc.Events, svc.Users, svc.Categories, cfg.Environment)
	private := handlers.NewPrivateHandler(svc.Events, svc.Requests, cfg.Environment)
	public := handlers.NewPublicHandler(svc.Events, svc.Categories, cfg.Environment)
	health := handlers.NewHealthChecker(svc.DB, cfg.Jobs.Enabled, build.Version, build.GitCommit)

	r := newBaseRouter(cfg, logger)
	mountOps(r, health, build)

	r.Group(func(r chi.Router) {
		r.Use(middleware.WithRateLimitTierHandler(middleware.TierAdmin))
		r.Use(limiter.Handler)
		r.Use(middleware.AdminRequestSize())

		r.Route("/admin", func(r chi.Router) {
			r.Get("/events", admin.ListEvents)
			r.Patch("/events/{eventId}", admin.EditEvent)
			r.Get("/users", admin.ListUsers)
			r.Post("/users", admin.CreateUser)
			r.Post("/categories", admin.CreateCategory)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.WithRateLimitTierHandler(middleware.TierPublic))
		r.Use(limiter.Handler)
		r.Use(middleware.PublicRequestSize())

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/events", private.ListEvents)
			r.Post("/events", private.CreateEvent)
			r.Get("/events/{eventId}", private.GetEvent)
			r.Patch("/events/{eventId}", private.EditEvent)
			r.Get("/events/{eventId}/requests", private.ListEventRequests)
			r.Patch("/events/{eventId}/requests", private.UpdateEventRequests)
			r.Get("/requests", private.ListRequests)
			r.Post("/requests", private.CreateRequest)
			r.Patch("/requests/{requestId}/cancel", private.CancelRequest)
		})

		r.Get("/events", public.ListEvents)
		r.Get("/events/{id}", public.GetEvent)
		r.Get("/categories", public.ListCategories)
		r.Get("/categories/{catId}", public.GetCategory)
	})

	return &Router{Handler: r, RateLimiter: limiter}
}

// NewStatsRouter builds the stats service API. It sits on the internal
// network, so it carries no rate limiting.
func NewStatsRouter(cfg config.Config, logger zerolog.Logger, hits handlers.HitStore, db handlers.Querier, build BuildInfo) *Router {
	stats := handlers.NewStatsHandler(hits, cfg.Environment)
	health := handlers.NewHealthChecker(db, false, build.Version, build.GitCommit)

	r := newBaseRouter(cfg, logger)
	mountOps(r, health, build)

	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRequestSize())
		r.Post("/hit", stats.Hit)
		r.Get("/stats", stats.Stats)
	})

	return &Router{Handler: r}
}

func newBaseRouter(cfg config.Config, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CorrelationID(logger))
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogging(logger))
	r.Use(metrics.HTTPMiddleware)
	r.Use(middleware.SecurityHeaders(cfg.Environment == "production"))
	return r
}

func mountOps(r chi.Router, health *handlers.HealthChecker, build BuildInfo) {
	r.Method(http.MethodGet, "/healthz", handlers.Healthz())
	r.Get("/readyz", health.Readyz())
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/version", VersionHandler(build))
}
