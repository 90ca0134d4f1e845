package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IgorGrieder/shorty/internal/config"
	"github.com/IgorGrieder/shorty/internal/events"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ClickPublisher turns accepted redirects into ClickRecorded events.
// It satisfies links.ClickRecorder.
type ClickPublisher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
}

func NewClickPublisher(cfg config.KafkaConfig) *ClickPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newClickPublisher(writer, cfg.Topic, cfg.WriteTimeout)
}

func newClickPublisher(writer messageWriter, topic string, writeTimeout time.Duration) *ClickPublisher {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &ClickPublisher{writer: writer, topic: topic, writeTimeout: writeTimeout}
}

func (p *ClickPublisher) RecordClick(ctx context.Context, code string, at time.Time) error {
	ev := events.NewClickRecorded(code, at)

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal click event: %w", err)
	}

	ctx, span := otel.Tracer("click-publisher").Start(
		ctx,
		"kafka.publish.click_recorded",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.topic),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.message.id", ev.EventID),
			attribute.String("messaging.kafka.message_key", code),
		),
	)
	defer span.End()

	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	// Keyed by code so every click for a link lands on the same partition.
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:     []byte(code),
		Value:   value,
		Time:    at.UTC(),
		Headers: HeadersFromContext(ctx),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		return fmt.Errorf("publish click event: %w", err)
	}

	clickEventsPublished.Inc()
	return nil
}

func (p *ClickPublisher) Close() error {
	return p.writer.Close()
}
