package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware lets the configured frontend origins call the API.
// A "*" entry allows any origin.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodHead,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Accept",
			"Origin",
			"X-Requested-With",
			"X-Correlation-Id",
			// OpenTelemetry headers
			"traceparent",
			"tracestate",
			"baggage",
		},
		ExposedHeaders: []string{"X-Correlation-Id", "Location"},
	})

	return c.Handler
}
