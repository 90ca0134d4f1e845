package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/IgorGrieder/shorty/internal/config"
	"github.com/IgorGrieder/shorty/internal/events"
	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxRetryInterval = 30 * time.Second

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ClickApplier is what the consumer needs from the links service.
type ClickApplier interface {
	ApplyClick(ctx context.Context, code string, at time.Time) error
}

// ClickConsumer applies ClickRecorded events to the link store. Delivery is
// at-least-once: a failing event is retried with backoff until it is applied,
// and its offset is committed only after that.
type ClickConsumer struct {
	reader           messageReader
	applier          ClickApplier
	operationTimeout time.Duration
	backoff          time.Duration
}

func NewClickConsumer(cfg config.KafkaConfig, applier ClickApplier) *ClickConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     cfg.FetchMaxWait,
		StartOffset: kafka.FirstOffset,
	})
	return newClickConsumer(reader, applier, cfg.OperationTimeout, cfg.ConsumeBackoff)
}

func newClickConsumer(reader messageReader, applier ClickApplier, operationTimeout, backoff time.Duration) *ClickConsumer {
	if operationTimeout <= 0 {
		operationTimeout = 5 * time.Second
	}
	return &ClickConsumer{
		reader:           reader,
		applier:          applier,
		operationTimeout: operationTimeout,
		backoff:          backoff,
	}
}

// Run consumes until ctx is cancelled.
func (c *ClickConsumer) Run(ctx context.Context) error {
	tracer := otel.Tracer("click-consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("failed to fetch kafka message", zap.Error(err))
			c.wait(ctx)
			continue
		}

		msgCtx, span := tracer.Start(
			ContextFromHeaders(ctx, msg.Headers),
			"kafka.consume.click_recorded",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination.name", msg.Topic),
				attribute.String("messaging.operation", "process"),
				attribute.Int("messaging.kafka.partition", msg.Partition),
				attribute.Int64("messaging.kafka.offset", msg.Offset),
			),
		)

		if err := c.retry(msgCtx, "process click event", msg, func() error { return c.handle(msgCtx, msg) }); err != nil {
			// Only cancellation ends the retry loop; the offset stays uncommitted.
			span.End()
			return nil
		}

		if err := c.retry(msgCtx, "commit kafka offset", msg, func() error { return c.reader.CommitMessages(msgCtx, msg) }); err != nil {
			span.End()
			return nil
		}

		span.End()
	}
}

// handle returns an error only for failures worth retrying. Malformed
// payloads and clicks on deleted links are dropped.
func (c *ClickConsumer) handle(ctx context.Context, msg kafka.Message) error {
	var ev events.ClickRecorded
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		logger.Warn("invalid click event payload, skipping",
			zap.Error(err),
			zap.ByteString("payload", msg.Value),
		)
		clickEventsConsumed.WithLabelValues("invalid").Inc()
		return nil
	}
	if strings.TrimSpace(ev.Code) == "" {
		logger.Warn("click event missing code, skipping", zap.String("event_id", ev.EventID))
		clickEventsConsumed.WithLabelValues("invalid").Inc()
		return nil
	}

	occurredAt, ok := ev.OccurredTime(msg.Time.UTC())
	if !ok {
		logger.Debug("click event without usable occurredAt, using kafka timestamp",
			zap.String("event_id", ev.EventID),
		)
	}

	opCtx, cancel := context.WithTimeout(ctx, c.operationTimeout)
	defer cancel()

	if err := c.applier.ApplyClick(opCtx, ev.Code, occurredAt); err != nil {
		if errors.Is(err, links.ErrNotFound) {
			logger.Info("click event skipped for missing link",
				zap.String("event_id", ev.EventID),
				zap.String("code", ev.Code),
			)
			clickEventsConsumed.WithLabelValues("skipped").Inc()
			return nil
		}
		clickEventsConsumed.WithLabelValues("failed").Inc()
		return err
	}

	clickEventsConsumed.WithLabelValues("applied").Inc()
	return nil
}

// retry runs op until it succeeds or ctx ends. The message is never skipped:
// kafka-go commits are cumulative, so moving on would commit past it.
func (c *ClickConsumer) retry(ctx context.Context, what string, msg kafka.Message, op func() error) error {
	span := trace.SpanFromContext(ctx)
	attempt := 0

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, op()
	},
		backoff.WithBackOff(c.retryBackOff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			span.RecordError(err)
			span.SetStatus(codes.Error, what+" failed")
			logger.Error("failed to "+what+", retrying",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Int("attempt", attempt),
				zap.Duration("next_retry", next),
			)
		}),
	)
	return err
}

func (c *ClickConsumer) retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoff
	b.MaxInterval = maxRetryInterval
	return b
}

func (c *ClickConsumer) wait(ctx context.Context) {
	if c.backoff <= 0 {
		return
	}
	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *ClickConsumer) Close() error {
	return c.reader.Close()
}
