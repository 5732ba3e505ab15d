package paraver

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// warnedCacheSize bounds how many unregistered descriptors are remembered as
// already warned about. An evicted descriptor is warned about again.
const warnedCacheSize = 4096

// Sink receives trace events from a Tracer. The context returned for an
// enter event is the one its matching exit event is emitted with.
type Sink interface {
	Event(ctx context.Context, eventType uint64, value uint64) context.Context
}

// Caller is where a traced method was called from
type Caller struct {
	Function string
	File     string
	Line     int
}

type callerKeyType int

const callerKey callerKeyType = iota

// CallerFromContext returns the caller recorded by a Tracer with CallerOption set
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok
}

// Definer is a Sink that can be told what event values mean
type Definer interface {
	DefineEventType(ctx context.Context, eventType EventType) error
}

// Flusher is a Sink buffering events
type Flusher interface {
	Flush(ctx context.Context) error
}

// EventValue names a single value of an event type
type EventValue struct {
	Value       uint64
	Description string
}

// EventType describes an event type and its values for the trace reader
type EventType struct {
	Type        uint64
	Description string
	Values      []EventValue
}

// Tracer records enter and exit events for traced methods
type Tracer struct {
	values   Values
	sink     Sink
	enabled  atomic.Bool
	events   atomic.Uint64
	options  atomic.Uint32
	warned   *lru.Cache[string, struct{}]

	mu     sync.Mutex
	traced []string
	seen   map[string]struct{}
}

// NewTracer creates a disabled tracer emitting into sink
func NewTracer(values Values, sink Sink) (*Tracer, error) {
	warned, err := lru.New[string, struct{}](warnedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("error creating warned descriptor cache: %v", err)
	}

	if values == nil {
		values = Values{}
	}

	return &Tracer{
		values: values,
		sink:   sink,
		warned: warned,
		seen:   map[string]struct{}{},
	}, nil
}

// Enable starts emitting events
func (t *Tracer) Enable() {
	t.enabled.Store(true)
}

// Disable stops emitting events, methods still run
func (t *Tracer) Disable() {
	t.enabled.Store(false)
}

// Enabled reports whether events are emitted
func (t *Tracer) Enabled() bool {
	return t.enabled.Load()
}

// SetOptions changes instrumentation options for calls traced from now on
func (t *Tracer) SetOptions(options Options) {
	t.options.Store(uint32(options))
}

// Options returns the current instrumentation options
func (t *Tracer) Options() Options {
	return Options(t.options.Load())
}

// Events returns the number of events emitted so far
func (t *Tracer) Events() uint64 {
	return t.events.Load()
}

// Trace runs fn between an enter and an exit event for descriptor.
// The exit event is emitted whenever the enter one was, even if fn fails or panics.
func (t *Tracer) Trace(ctx context.Context, descriptor string, fn func(ctx context.Context) error) error {
	if !t.Enabled() {
		return fn(ctx)
	}

	value := t.resolve(descriptor)
	t.markTraced(descriptor)

	if t.Options().Has(CallerOption) {
		if pc, file, line, ok := runtime.Caller(1); ok {
			caller := Caller{File: file, Line: line}
			if f := runtime.FuncForPC(pc); f != nil {
				caller.Function = f.Name()
			}

			ctx = context.WithValue(ctx, callerKey, caller)
		}
	}

	ctx = t.emit(ctx, value)
	defer t.emit(ctx, EndValue)

	return fn(ctx)
}

func (t *Tracer) emit(ctx context.Context, value uint64) context.Context {
	t.events.Add(1)
	return t.sink.Event(ctx, TaskEvents, value)
}

func (t *Tracer) resolve(descriptor string) uint64 {
	if value, ok := t.values[descriptor]; ok {
		return value
	}

	if ok, _ := t.warned.ContainsOrAdd(descriptor, struct{}{}); !ok {
		log.Printf("Method %q is not registered in the values table, using %d", descriptor, UnregisteredValue)
	}

	return UnregisteredValue
}

func (t *Tracer) markTraced(descriptor string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[descriptor]; ok {
		return
	}

	t.seen[descriptor] = struct{}{}
	t.traced = append(t.traced, descriptor)
}

// Traced returns descriptors traced so far in first use order
func (t *Tracer) Traced() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]string(nil), t.traced...)
}

// EventType describes every traced method that has a registered value
func (t *Tracer) EventType() EventType {
	eventType := EventType{
		Type:        TaskEvents,
		Description: "dataClay",
		Values:      []EventValue{{Value: EndValue, Description: "End"}},
	}

	for _, descriptor := range t.Traced() {
		value, ok := t.values[descriptor]
		if !ok {
			log.Printf("Skipping unregistered method %q in event type definition", descriptor)
			continue
		}

		eventType.Values = append(eventType.Values, EventValue{Value: value, Description: descriptor})
	}

	return eventType
}

// Finish defines the event type and flushes the sink if it supports that,
// then disables the tracer. It does nothing on a disabled tracer.
func (t *Tracer) Finish(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}

	defer t.Disable()

	if definer, ok := t.sink.(Definer); ok {
		eventType := t.EventType()
		if err := definer.DefineEventType(ctx, eventType); err != nil {
			return fmt.Errorf("error defining event type %d: %w", eventType.Type, err)
		}
	}

	if flusher, ok := t.sink.(Flusher); ok {
		if err := flusher.Flush(ctx); err != nil {
			return fmt.Errorf("error flushing trace events: %w", err)
		}
	}

	return nil
}
