package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iago/blog-generation-back/internal/http/handlers"
	"github.com/iago/blog-generation-back/internal/http/middleware"
)

type RouterDependencies struct {
	API         *handlers.API
	Logger      zerolog.Logger
	AuthToken   string
	CronSecret  string
	CORSOrigins []string
	RateLimiter *middleware.RateLimiter
}

func NewRouter(deps RouterDependencies) http.Handler {
	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(0, 0)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Trace(deps.Logger))
	router.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: deps.CORSOrigins}))
	router.Use(limiter.Middleware)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeRouteError(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeRouteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	router.Get("/healthz", deps.API.Health)

	router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.AuthToken))
		r.Use(middleware.Owner)

		r.Post("/generate", deps.API.Generate)
		r.Get("/status", deps.API.JobStatus)
		r.Get("/jobs/{jobID}", deps.API.JobStatus)

		r.Post("/ai/rewrite", deps.API.Rewrite)
		r.Post("/ai/extract-keywords", deps.API.ExtractKeywords)

		r.Route("/posts/{postID}", func(r chi.Router) {
			r.Get("/", deps.API.GetPost)
			r.Post("/content", deps.API.SavePostContent)
			r.Post("/metadata", deps.API.SavePostMetadata)
			r.Post("/publish", deps.API.PublishPost)
			r.Post("/schedule", deps.API.SchedulePost)
		})
	})

	router.Route("/internal", func(r chi.Router) {
		r.Use(middleware.CronSecret(deps.CronSecret))

		r.Get("/dispatch", deps.API.Dispatch)
		r.Post("/dispatch", deps.API.Dispatch)
		r.Get("/events", deps.API.RecentEvents)
	})

	return router
}

func writeRouteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"},"request_id":"` + middleware.GetRequestID(r.Context()) + `"}`))
}
