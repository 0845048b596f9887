package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prepit/audioproc/internal/api/handlers"
	"github.com/prepit/audioproc/internal/api/middleware"
	"github.com/prepit/audioproc/internal/auth"
	"github.com/prepit/audioproc/internal/config"
	"github.com/prepit/audioproc/internal/metrics"
)

// Deps are the collaborators the HTTP surface talks to.
type Deps struct {
	Checks   map[string]handlers.Check
	Queue    handlers.Enqueuer
	Prompts  handlers.PromptService
	Feedback handlers.FeedbackStore
	Messages handlers.AudioStatus
	Metrics  *metrics.Metrics
}

type Router struct {
	mux  *chi.Mux
	cfg  *config.Config
	deps Deps
	jwt  *auth.JWTMiddleware
	rl   *middleware.RateLimiter
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg,
		deps: deps,
		jwt:  auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		rl:   middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
	}
}

// RateLimiter is exposed so the caller can run its cleanup loop.
func (rt *Router) RateLimiter() *middleware.RateLimiter {
	return rt.rl
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins))

	// Health endpoints (no auth, no rate limit)
	health := handlers.NewHealthHandler(rt.deps.Checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(rt.rl.Limit)

		// Recording upload, called by the chat backend when a session ends
		taskH := handlers.NewTaskHandler(rt.cfg.Audio.UnprocessedDir, rt.cfg.Server.MaxUploadMB, rt.deps.Queue, rt.deps.Metrics)
		r.Post("/new_audio_processing_task", taskH.Create)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(rt.jwt.Authenticate)

			promptH := handlers.NewPromptHandler(rt.deps.Prompts)
			r.Route("/agents/{agentID}/prompts", func(r chi.Router) {
				r.Post("/cache", promptH.Cache)
				r.Put("/{step}", promptH.Put)
				r.Get("/{step}", promptH.Get)
			})

			feedbackH := handlers.NewFeedbackHandler(rt.deps.Feedback)
			messageH := handlers.NewMessageHandler(rt.deps.Messages)
			r.Route("/threads/{threadID}", func(r chi.Router) {
				r.Put("/feedback/{stepID}", feedbackH.Put)
				r.Get("/feedback/{stepID}", feedbackH.Get)
				r.Get("/messages/{createdAt}/audio", messageH.AudioStatus)
			})
		})
	})

	return r
}
