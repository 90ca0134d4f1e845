package messaging

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// HeadersFromContext serializes the trace context of ctx into Kafka headers.
func HeadersFromContext(ctx context.Context) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := make([]kafka.Header, 0, len(carrier))
	for key, value := range carrier {
		if strings.TrimSpace(value) == "" {
			continue
		}
		headers = append(headers, kafka.Header{
			Key:   key,
			Value: []byte(value),
		})
	}
	return headers
}

// ContextFromHeaders restores the producer's trace context on the consumer side.
func ContextFromHeaders(parent context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header.Key))
		if key == "" {
			continue
		}
		carrier.Set(key, string(header.Value))
	}
	return otel.GetTextMapPropagator().Extract(parent, carrier)
}
