package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/interview-scheduler/internal/ratelimit"
)

// routeMetrics is the HTTP facing part of telemetry.Metrics.
type routeMetrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
	RateLimited(route string)
}

type RouterConfig struct {
	Interviews *InterviewHandler
	Verifier   tokenVerifier
	Limiter    ratelimit.Limiter
	RateLimit  RateLimitPolicy
	Metrics    routeMetrics
	Health     HealthCheck
	Logger     *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	var recorder RateLimitRecorder
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
		recorder = cfg.Metrics
	}
	r.Get("/healthz", healthHandler(cfg.Health, logger))

	if cfg.Interviews == nil || cfg.Verifier == nil {
		return r
	}
	h := cfg.Interviews
	limited := RateLimit(cfg.Limiter, cfg.RateLimit, recorder, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireIdentity(cfg.Verifier, logger))

		r.Route("/applications/{applicationID}", func(r chi.Router) {
			r.Get("/slots", h.GetSlots)
			r.With(limited).Post("/slots", h.AddSlot)
			r.With(limited).Put("/slots", h.ProposeSlots)
			r.With(limited).Delete("/slots/{slotIndex}", h.RemoveSlot)
			r.With(limited).Post("/votes", h.CastVote)
			r.With(limited).Post("/confirmation", h.ConfirmSlot)
			r.With(limited).Post("/cancellation", h.CancelInterview)
		})

		r.Get("/employers/{employerID}/interviews", h.ListEmployerInterviews)
		r.With(limited).Get("/employers/{employerID}/suggestions", h.Suggestions)
		r.Get("/candidates/{candidateID}/interviews", h.ListCandidateInterviews)
	})

	return r
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
