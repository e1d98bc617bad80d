package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/flagprops/internal/targeting"
	"github.com/TimurManjosov/flagprops/internal/telemetry"
)

const (
	defaultMaxRequestBodyBytes  = 1 << 20
	defaultMaxFiltersPerRequest = 100
)

// Options tunes request limits and defaults of the HTTP API.
type Options struct {
	MaxRequestBodyBytes  int64
	MaxFiltersPerRequest int
	// RateLimitPerIP is requests per minute per client IP; 0 disables limiting.
	RateLimitPerIP int
	// DefaultPartial is used when a request does not set "partial".
	DefaultPartial bool
}

type Server struct {
	matcher *targeting.Matcher
	logger  zerolog.Logger
	opts    Options
}

func NewServer(matcher *targeting.Matcher, logger zerolog.Logger, opts Options) *Server {
	if matcher == nil {
		matcher = targeting.NewMatcher(nil, nil)
	}
	if opts.MaxRequestBodyBytes <= 0 {
		opts.MaxRequestBodyBytes = defaultMaxRequestBodyBytes
	}
	if opts.MaxFiltersPerRequest <= 0 {
		opts.MaxFiltersPerRequest = defaultMaxFiltersPerRequest
	}
	return &Server{matcher: matcher, logger: logger, opts: opts}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(telemetry.Middleware)

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1/properties", func(r chi.Router) {
		if s.opts.RateLimitPerIP > 0 {
			r.Use(httprate.Limit(
				s.opts.RateLimitPerIP,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(RateLimitedError),
			))
		}
		r.Get("/operators", s.handleOperators)
		r.Post("/match", s.handleMatch)
		r.Post("/match-all", s.handleMatchAll)
		r.Post("/validate", s.handleValidate)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError(w, r, "Route not found")
	})

	return r
}
