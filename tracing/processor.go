package tracing

import (
	"context"

	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

// NewProcessor returns an OpenTelemetry span processor configured with autoexport env variables.
// The global tracer provider also gets task identity from the library.
func NewProcessor(ctx context.Context, library *Library) (trace.SpanProcessor, error) {
	exporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		return nil, err
	}

	processor := trace.NewBatchSpanProcessor(exporter)
	otel.SetTracerProvider(trace.NewTracerProvider(
		trace.WithSpanProcessor(newTaskProcessor(library)),
		trace.WithSpanProcessor(processor),
	))

	return processor, nil
}
