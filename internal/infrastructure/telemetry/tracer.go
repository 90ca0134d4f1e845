package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// TracerProvider is exposed for use with otelhttp and other instrumentation
var TracerProvider *sdktrace.TracerProvider

type Options struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// parseEndpoint splits an OTLP URL into host:port and whether TLS is off.
func parseEndpoint(endpoint string) (string, bool) {
	insecure := !strings.HasPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimSuffix(endpoint, "/")
	endpoint = strings.TrimSuffix(endpoint, "/v1/traces")
	return endpoint, insecure
}

// InitTracer installs a global OTLP/HTTP tracer provider and W3C propagation.
// The returned func flushes and stops the exporter.
func InitTracer(ctx context.Context, opts Options) (func(context.Context) error, error) {
	endpoint, insecure := parseEndpoint(opts.Endpoint)

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
			semconv.DeploymentEnvironment(opts.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	TracerProvider = tp
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
