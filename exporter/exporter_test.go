package exporter

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/bsc-dataclay/extrae_registrar/paraver"
	"github.com/bsc-dataclay/extrae_registrar/registrar"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type discardSink struct{}

func (discardSink) Event(ctx context.Context, _ uint64, _ uint64) context.Context {
	return ctx
}

func TestTaskIdentityMetrics(t *testing.T) {
	r := registrar.New(nil, registrar.WithOutput(io.Discard))
	e := New(r, nil)

	expected := `
# HELP extrae_registrar_num_tasks Number of tasks in the job
# TYPE extrae_registrar_num_tasks gauge
extrae_registrar_num_tasks 1
# HELP extrae_registrar_task_id Task id of this process within its job
# TYPE extrae_registrar_task_id gauge
extrae_registrar_task_id 0
`

	if err := testutil.CollectAndCompare(e, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metrics with defaults: %v", err)
	}

	r.SetTaskID(3)
	r.SetNumTasks(8)

	expected = `
# HELP extrae_registrar_num_tasks Number of tasks in the job
# TYPE extrae_registrar_num_tasks gauge
extrae_registrar_num_tasks 8
# HELP extrae_registrar_task_id Task id of this process within its job
# TYPE extrae_registrar_task_id gauge
extrae_registrar_task_id 3
`

	if err := testutil.CollectAndCompare(e, strings.NewReader(expected)); err != nil {
		t.Errorf("Expected metrics to follow registrar: %v", err)
	}
}

func TestTracingMetrics(t *testing.T) {
	r := registrar.New(nil, registrar.WithOutput(io.Discard))

	tracer, err := paraver.NewTracer(paraver.Values{"a.A.run": 10000}, discardSink{})
	if err != nil {
		t.Fatalf("Error creating tracer: %v", err)
	}

	tracer.Enable()
	_ = tracer.Trace(context.Background(), "a.A.run", func(context.Context) error { return nil })

	e := New(r, tracer)

	expected := `
# HELP extrae_registrar_trace_events_total Trace events emitted
# TYPE extrae_registrar_trace_events_total counter
extrae_registrar_trace_events_total{type="task"} 2
# HELP extrae_registrar_traced_methods Number of distinct methods traced so far
# TYPE extrae_registrar_traced_methods gauge
extrae_registrar_traced_methods 1
# HELP extrae_registrar_tracing_enabled Whether method tracing is enabled
# TYPE extrae_registrar_tracing_enabled gauge
extrae_registrar_tracing_enabled 1
`

	err = testutil.CollectAndCompare(e, strings.NewReader(expected),
		"extrae_registrar_trace_events_total",
		"extrae_registrar_traced_methods",
		"extrae_registrar_tracing_enabled",
	)
	if err != nil {
		t.Errorf("Unexpected tracing metrics: %v", err)
	}

	if count := testutil.CollectAndCount(e); count != 5 {
		t.Errorf("Expected 5 metrics, got %d", count)
	}
}
