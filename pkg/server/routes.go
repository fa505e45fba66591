package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"keystone-mrm/arbiter/pkg/telemetry/health"
)

// routes builds the router and middleware chain.
func (s *Server) routes() http.Handler {
	tel := s.deps.Telemetry
	telCfg := tel.Config()

	r := chi.NewRouter()

	r.Use(s.requestID)
	if s.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader, "traceparent", "tracestate"},
			ExposedHeaders:   []string{RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           s.config.CORS.MaxAge,
		}))
	}
	r.Use(s.instrument)
	r.Use(s.logRequests)
	r.Use(s.recoverer)

	r.Get(telCfg.Health.LivenessPath, tel.Health().LivenessHandler())
	r.Get(telCfg.Health.ReadinessPath, tel.Health().ReadinessHandler())
	build := tel.Build()
	r.Get("/version", health.VersionHandler(build.Version, build.Commit, build.BuildTime))
	if telCfg.Metrics.Enabled {
		r.Method(http.MethodGet, telCfg.Metrics.Path, tel.Metrics().Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(s.limitBody)

		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/explain", s.handleExplain)
		r.Get("/fields", s.handleFields)

		r.Route("/ruleset", func(r chi.Router) {
			r.Get("/", s.handleRulesetStatus)
			r.Post("/reload", s.handleRulesetReload)
		})

		r.Route("/decisions", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleListDecisions)
			r.Get("/{id}", s.handleGetDecision)
			r.Get("/{id}/checklist", s.handleChecklist)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, http.StatusNotFound, CodeNotFound, errRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, errMethodNotAllowed)
	})

	return r
}
