package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IgorGrieder/shorty/internal/events"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
	onDrained func()
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		if r.onDrained != nil {
			r.onDrained()
		}
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.pending[0]
	r.pending = r.pending[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type appliedClick struct {
	code string
	at   time.Time
}

type fakeApplier struct {
	mu      sync.Mutex
	applied []appliedClick
	errs    map[string]error
	// failures makes the next n calls for a code fail before it succeeds.
	failures map[string]int
	calls    map[string]int
}

func (a *fakeApplier) ApplyClick(_ context.Context, code string, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.calls == nil {
		a.calls = map[string]int{}
	}
	a.calls[code]++
	if a.failures[code] > 0 {
		a.failures[code]--
		return errors.New("storage unavailable")
	}
	if err := a.errs[code]; err != nil {
		return err
	}
	a.applied = append(a.applied, appliedClick{code: code, at: at})
	return nil
}

func withTraceContext(t *testing.T) {
	t.Helper()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
}

func sampledContext() (context.Context, trace.SpanContext) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03},
		SpanID:     trace.SpanID{0x04, 0x05},
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc), sc
}

func clickMessage(t *testing.T, ev events.ClickRecorded) kafka.Message {
	t.Helper()
	value, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Topic: "clicks.recorded", Value: value, Time: time.Now()}
}

func TestHeadersRoundTrip(t *testing.T) {
	withTraceContext(t)
	ctx, sc := sampledContext()

	headers := HeadersFromContext(ctx)
	require.NotEmpty(t, headers)

	restored := trace.SpanContextFromContext(ContextFromHeaders(context.Background(), headers))
	assert.Equal(t, sc.TraceID(), restored.TraceID())
	assert.Equal(t, sc.SpanID(), restored.SpanID())
}

func TestClickPublisher_RecordClick(t *testing.T) {
	withTraceContext(t)
	ctx, sc := sampledContext()

	writer := &fakeWriter{}
	pub := newClickPublisher(writer, "clicks.recorded", time.Second)
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, pub.RecordClick(ctx, "abc123", at))
	require.Len(t, writer.msgs, 1)

	msg := writer.msgs[0]
	assert.Equal(t, "abc123", string(msg.Key))

	var ev events.ClickRecorded
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "abc123", ev.Code)
	assert.NotEmpty(t, ev.EventID)
	occurred, ok := ev.OccurredTime(time.Time{})
	require.True(t, ok)
	assert.True(t, occurred.Equal(at))

	restored := trace.SpanContextFromContext(ContextFromHeaders(context.Background(), msg.Headers))
	assert.Equal(t, sc.TraceID(), restored.TraceID())
}

func TestClickPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	pub := newClickPublisher(writer, "clicks.recorded", time.Second)

	err := pub.RecordClick(context.Background(), "abc123", time.Now())
	assert.Error(t, err)
}

func TestClickConsumer_Handle(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("applies click at event time", func(t *testing.T) {
		applier := &fakeApplier{}
		c := newClickConsumer(&fakeReader{}, applier, time.Second, 0)

		err := c.handle(context.Background(), clickMessage(t, events.NewClickRecorded("abc123", at)))
		require.NoError(t, err)
		require.Len(t, applier.applied, 1)
		assert.Equal(t, "abc123", applier.applied[0].code)
		assert.True(t, applier.applied[0].at.Equal(at))
	})

	t.Run("falls back to kafka timestamp", func(t *testing.T) {
		applier := &fakeApplier{}
		c := newClickConsumer(&fakeReader{}, applier, time.Second, 0)

		msg := clickMessage(t, events.ClickRecorded{EventID: "e1", Code: "abc123"})
		msg.Time = at

		require.NoError(t, c.handle(context.Background(), msg))
		require.Len(t, applier.applied, 1)
		assert.True(t, applier.applied[0].at.Equal(at))
	})

	t.Run("skips deleted links", func(t *testing.T) {
		applier := &fakeApplier{errs: map[string]error{"gone12": links.ErrNotFound}}
		c := newClickConsumer(&fakeReader{}, applier, time.Second, 0)

		err := c.handle(context.Background(), clickMessage(t, events.NewClickRecorded("gone12", at)))
		assert.NoError(t, err)
	})

	t.Run("skips malformed payloads", func(t *testing.T) {
		applier := &fakeApplier{}
		c := newClickConsumer(&fakeReader{}, applier, time.Second, 0)

		assert.NoError(t, c.handle(context.Background(), kafka.Message{Value: []byte("{not json")}))
		assert.NoError(t, c.handle(context.Background(), clickMessage(t, events.ClickRecorded{EventID: "e2"})))
		assert.Empty(t, applier.applied)
	})

	t.Run("surfaces storage failures for retry", func(t *testing.T) {
		applier := &fakeApplier{errs: map[string]error{"abc123": errors.New("db down")}}
		c := newClickConsumer(&fakeReader{}, applier, time.Second, 0)

		err := c.handle(context.Background(), clickMessage(t, events.NewClickRecorded("abc123", at)))
		assert.Error(t, err)
	})
}

func TestClickConsumer_RunCommitsProcessedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	at := time.Now().UTC()
	reader := &fakeReader{
		pending: []kafka.Message{
			clickMessage(t, events.NewClickRecorded("abc123", at)),
			clickMessage(t, events.NewClickRecorded("gone12", at)),
		},
		onDrained: cancel,
	}
	applier := &fakeApplier{errs: map[string]error{"gone12": links.ErrNotFound}}

	c := newClickConsumer(reader, applier, time.Second, 0)
	require.NoError(t, c.Run(ctx))

	assert.Len(t, applier.applied, 1)
	assert.Len(t, reader.committed, 2)
}

func TestClickConsumer_RunRetriesFailedEventBeforeMovingOn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	at := time.Now().UTC()
	first := clickMessage(t, events.NewClickRecorded("aaa111", at))
	first.Offset = 10
	second := clickMessage(t, events.NewClickRecorded("bbb222", at))
	second.Offset = 11

	reader := &fakeReader{
		pending:   []kafka.Message{first, second},
		onDrained: cancel,
	}
	applier := &fakeApplier{failures: map[string]int{"aaa111": 1}}

	c := newClickConsumer(reader, applier, time.Second, time.Millisecond)
	require.NoError(t, c.Run(ctx))

	require.Len(t, applier.applied, 2)
	assert.Equal(t, "aaa111", applier.applied[0].code)
	assert.Equal(t, "bbb222", applier.applied[1].code)
	assert.Equal(t, 2, applier.calls["aaa111"])

	require.Len(t, reader.committed, 2)
	assert.Equal(t, int64(10), reader.committed[0].Offset)
	assert.Equal(t, int64(11), reader.committed[1].Offset)
}

func TestClickConsumer_RunStopsRetryingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		pending: []kafka.Message{clickMessage(t, events.NewClickRecorded("aaa111", time.Now()))},
	}
	applier := &fakeApplier{failures: map[string]int{"aaa111": 1 << 30}}

	c := newClickConsumer(reader, applier, time.Second, time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer kept retrying after cancel")
	}

	assert.Empty(t, applier.applied)
	assert.Empty(t, reader.committed)
}
