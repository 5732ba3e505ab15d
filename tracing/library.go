package tracing

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	sdk "go.opentelemetry.io/otel/sdk/trace"
)

const (
	taskIDKey   = attribute.Key("task.id")
	numTasksKey = attribute.Key("task.count")
)

// Library keeps the callbacks the host application registered to tell
// who it is, and attaches that identity to every span it sees
type Library struct {
	taskIDFn   atomic.Pointer[func() uint32]
	numTasksFn atomic.Pointer[func() uint32]
}

// NewLibrary creates a library with no callbacks registered
func NewLibrary() *Library {
	return &Library{}
}

// SetTaskIDFunction registers the callback returning the current task id
func (l *Library) SetTaskIDFunction(fn func() uint32) {
	l.taskIDFn.Store(&fn)
}

// SetNumTasksFunction registers the callback returning the number of tasks
func (l *Library) SetNumTasksFunction(fn func() uint32) {
	l.numTasksFn.Store(&fn)
}

// TaskID calls the registered task id callback, 0 if there is none
func (l *Library) TaskID() uint32 {
	fn := l.taskIDFn.Load()
	if fn == nil || *fn == nil {
		return 0
	}

	return (*fn)()
}

// NumTasks calls the registered num tasks callback, 1 if there is none
func (l *Library) NumTasks() uint32 {
	fn := l.numTasksFn.Load()
	if fn == nil || *fn == nil {
		return 1
	}

	return (*fn)()
}

// taskProcessor stamps task identity onto spans as they start
type taskProcessor struct {
	library *Library
}

func newTaskProcessor(library *Library) sdk.SpanProcessor {
	return &taskProcessor{library: library}
}

func (p *taskProcessor) OnStart(_ context.Context, span sdk.ReadWriteSpan) {
	span.SetAttributes(
		taskIDKey.Int64(int64(p.library.TaskID())),
		numTasksKey.Int64(int64(p.library.NumTasks())),
	)
}

func (p *taskProcessor) OnEnd(sdk.ReadOnlySpan) {}

func (p *taskProcessor) Shutdown(context.Context) error {
	return nil
}

func (p *taskProcessor) ForceFlush(context.Context) error {
	return nil
}
