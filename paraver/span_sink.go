package paraver

import (
	"context"
	"fmt"
	"sync"

	"github.com/bsc-dataclay/extrae_registrar/tracing"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	eventTypeKey  = attribute.Key("paraver.event.type")
	eventValueKey = attribute.Key("paraver.event.value")
)

// SpanSink turns enter/exit events into OpenTelemetry spans. The span of an
// enter event travels in the returned context and the exit event ends exactly
// that span, so concurrent callers never end each other's spans.
type SpanSink struct {
	provider tracing.Provider
	tracer   trace.Tracer
	names    map[uint64]string

	mu   sync.Mutex
	open map[trace.SpanID]trace.Span
}

// NewSpanSink creates a sink starting spans on the tracer for service.
// Span names come from the values table.
func NewSpanSink(provider tracing.Provider, service string, values Values) *SpanSink {
	names := make(map[uint64]string, len(values))
	for descriptor, value := range values {
		names[value] = descriptor
	}

	return &SpanSink{
		provider: provider,
		tracer:   provider.Tracer(service),
		names:    names,
		open:     map[trace.SpanID]trace.Span{},
	}
}

// Event starts a child span of ctx for non-zero values and returns a context
// carrying it. On EndValue it ends the span carried by ctx if this sink started it.
func (s *SpanSink) Event(ctx context.Context, eventType uint64, value uint64) context.Context {
	if value == EndValue {
		spanID := trace.SpanContextFromContext(ctx).SpanID()

		s.mu.Lock()
		span, ok := s.open[spanID]
		delete(s.open, spanID)
		s.mu.Unlock()

		if ok {
			span.End()
		}

		return ctx
	}

	name, ok := s.names[value]
	if !ok {
		name = fmt.Sprintf("event %d", value)
	}

	attrs := []attribute.KeyValue{
		eventTypeKey.Int64(int64(eventType)),
		eventValueKey.Int64(int64(value)),
	}

	if caller, ok := CallerFromContext(ctx); ok {
		attrs = append(attrs,
			semconv.CodeFunctionKey.String(caller.Function),
			semconv.CodeFilepathKey.String(caller.File),
			semconv.CodeLineNumberKey.Int(caller.Line),
		)
	}

	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	s.mu.Lock()
	s.open[span.SpanContext().SpanID()] = span
	s.mu.Unlock()

	return ctx
}

// Open returns the number of spans started and not yet ended
func (s *SpanSink) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.open)
}

// DefineEventType records the event type definition as a span with one event per value
func (s *SpanSink) DefineEventType(ctx context.Context, eventType EventType) error {
	_, span := s.tracer.Start(ctx, "define event type", trace.WithAttributes(
		eventTypeKey.Int64(int64(eventType.Type)),
		attribute.String("paraver.event.description", eventType.Description),
	))
	defer span.End()

	for _, value := range eventType.Values {
		span.AddEvent(value.Description, trace.WithAttributes(eventValueKey.Int64(int64(value.Value))))
	}

	return nil
}

// Flush pushes buffered spans out through the provider
func (s *SpanSink) Flush(ctx context.Context) error {
	return s.provider.ForceFlush(ctx)
}
