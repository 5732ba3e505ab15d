package tracing

import (
	"context"
	"errors"
	"os"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sys/unix"
)

// instrumentationName names the tracers handed out by providers
const instrumentationName = "github.com/bsc-dataclay/extrae_registrar/tracing"

// Provider creates tracers for requested service names
type Provider interface {
	Tracer(service string) trace.Tracer
	ForceFlush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type provider struct {
	mu        sync.Mutex
	library   *Library
	processor sdk.SpanProcessor
	providers map[string]*sdk.TracerProvider
}

// NewProvider creates a provider exporting through a specified processor,
// with every span carrying task identity from the library
func NewProvider(processor sdk.SpanProcessor, library *Library) Provider {
	return &provider{library: library, processor: processor, providers: map[string]*sdk.TracerProvider{}}
}

// Tracer creates a new Tracer instance with a specified service name
func (p *provider) Tracer(service string) trace.Tracer {
	if service == "" {
		service = os.Getenv("OTEL_SERVICE_NAME")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.providers[service]; !ok {
		p.providers[service] = sdk.NewTracerProvider(
			sdk.WithSampler(sdk.AlwaysSample()),
			sdk.WithResource(resource.NewWithAttributes("", resourceAttributes(service)...)),
			sdk.WithSpanProcessor(newTaskProcessor(p.library)),
			sdk.WithSpanProcessor(p.processor),
			sdk.WithIDGenerator(newTaskIDGenerator(p.library)),
		)
	}

	return p.providers[service].Tracer(instrumentationName)
}

// ForceFlush flushes spans of every service
func (p *provider) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, tp := range p.providers {
		errs = append(errs, tp.ForceFlush(ctx))
	}

	return errors.Join(errs...)
}

// Shutdown stops every per-service provider. The shared processor is shut down
// by the first of them, later calls are no-ops in the sdk.
func (p *provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for service, tp := range p.providers {
		errs = append(errs, tp.Shutdown(ctx))
		delete(p.providers, service)
	}

	return errors.Join(errs...)
}

func resourceAttributes(service string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(service)}

	var uname unix.Utsname
	if err := unix.Uname(&uname); err == nil {
		attrs = append(attrs, semconv.OSVersionKey.String(unix.ByteSliceToString(uname.Release[:])))
	}

	return attrs
}
