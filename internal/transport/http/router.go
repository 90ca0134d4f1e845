package http

import (
	"net/http"

	"github.com/IgorGrieder/shorty/internal/config"
	"github.com/IgorGrieder/shorty/internal/constants"
	"github.com/IgorGrieder/shorty/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	"github.com/IgorGrieder/shorty/internal/transport/http/middleware"
	"github.com/IgorGrieder/shorty/pkg/httputils"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// The management API is served under both prefixes.
var linkPrefixes = []string{"/api/links", "/links"}

var spanNames = map[string]string{
	"GET /healthz":             "health",
	"GET /metrics":             "metrics",
	"POST /api/links":          "links.create",
	"POST /links":              "links.create",
	"GET /api/links":           "links.list",
	"GET /links":               "links.list",
	"GET /api/links/{code}":    "links.get",
	"GET /links/{code}":        "links.get",
	"DELETE /api/links/{code}": "links.delete",
	"DELETE /links/{code}":     "links.delete",
	"GET /{code}":              "links.redirect",
}

type RouterOptions struct {
	EnableSecurityHeaders bool
	EnableCORS            bool
	EnableLogging         bool
	EnableMetrics         bool
	EnableTracing         bool

	LinksHandlerOptions LinksHandlerOptions
}

func DefaultRouterOptions(cfg *config.Config) RouterOptions {
	return RouterOptions{
		EnableSecurityHeaders: true,
		EnableCORS:            true,
		EnableLogging:         true,
		EnableMetrics:         true,
		EnableTracing:         true,
		LinksHandlerOptions: LinksHandlerOptions{
			RedirectStatus: cfg.Shortener.RedirectStatus,
			ClickTimeout:   cfg.Clicks.Timeout,
			AsyncClick:     true,
		},
	}
}

// Router is the service's root handler. It keeps a reference to the links
// handler so shutdown can wait for in-flight click recordings.
type Router struct {
	http.Handler
	Links *LinksHandler
}

func NewRouter(cfg *config.Config, linkService *links.Service) *Router {
	return NewRouterWithOptions(cfg, linkService, DefaultRouterOptions(cfg))
}

func NewRouterWithOptions(cfg *config.Config, linkService *links.Service, opts RouterOptions) *Router {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler(linkService, cfg.App.Version)
	linksHandler := NewLinksHandler(linkService, opts.LinksHandlerOptions)

	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	for _, prefix := range linkPrefixes {
		mux.HandleFunc("POST "+prefix, linksHandler.Create)
		mux.HandleFunc("GET "+prefix, linksHandler.List)
		mux.HandleFunc("GET "+prefix+"/{code}", linksHandler.Get)
		mux.HandleFunc("DELETE "+prefix+"/{code}", linksHandler.Delete)
	}

	mux.HandleFunc("GET /{code}", linksHandler.Redirect)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httputils.WriteAPIError(w, r, constants.ErrNotFound)
	})

	var innerHandler http.Handler = mux
	if opts.EnableSecurityHeaders {
		innerHandler = middleware.SecurityHeadersMiddleware(innerHandler)
	}
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	root := &Router{Handler: innerHandler, Links: linksHandler}
	if !opts.EnableTracing {
		return root
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	root.Handler = otelhttp.NewHandler(nameSpan(innerHandler), cfg.App.Name, otelOptions...)
	return root
}

// nameSpan renames the server span once the mux has matched a pattern, which
// only happens after otelhttp started the span.
func nameSpan(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		// r.Pattern carries the method, e.g. "GET /{code}".
		if name, ok := spanNames[r.Pattern]; ok {
			trace.SpanFromContext(r.Context()).SetName(name)
		} else if r.Pattern != "" {
			trace.SpanFromContext(r.Context()).SetName(r.Pattern)
		}
	})
}
