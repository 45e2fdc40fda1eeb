// Package router assembles the HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"petanco-intake-api/internal/handler"
	"petanco-intake-api/internal/logger"
	"petanco-intake-api/internal/middleware"
	"petanco-intake-api/internal/response"
)

// SubmitPath is the sender-facing intake route.
const SubmitPath = "/petanco-api/v1/submit"

type Options struct {
	Handler       *handler.Handler
	Authenticator *middleware.Authenticator
	Writer        *response.Writer
	Log           logger.Logger

	// Enabled registers the submit route. When false the route is absent.
	Enabled bool
	// CORSMode is middleware.CORSPermissive or middleware.CORSStrict.
	CORSMode            string
	AllowedOrigin       string
	OriginRejectMessage string

	Tracing bool
	// Metrics defaults to promhttp.Handler().
	Metrics http.Handler
}

// New builds the router. Middleware order: request id, real ip, tracing,
// logging, recovery, then CORS and authentication per route.
func New(opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if opts.Tracing {
		r.Use(middleware.TracingMiddleware())
	}
	r.Use(middleware.RequestLogger(opts.Log))
	r.Use(chimw.Recoverer)

	metricsHandler := opts.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Get("/health", opts.Handler.Health)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	if !opts.Enabled {
		opts.Log.Info("intake endpoint disabled", nil)
		return r
	}

	var gate func(http.Handler) http.Handler
	if opts.CORSMode == middleware.CORSStrict {
		gate = middleware.StrictCORS(opts.AllowedOrigin, opts.OriginRejectMessage, opts.Writer, opts.Log)
	} else {
		gate = middleware.PermissiveCORS()
	}

	r.Group(func(r chi.Router) {
		r.Use(gate)
		r.Options(SubmitPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.With(opts.Authenticator.Middleware).Post(SubmitPath, opts.Handler.Submit)
	})

	return r
}
