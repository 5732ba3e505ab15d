package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bsc-dataclay/extrae_registrar/paraver"
)

type countingSink struct {
	events int
}

func (s *countingSink) Event(ctx context.Context, _ uint64, _ uint64) context.Context {
	s.events++
	return ctx
}

func TestDumpValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "descriptors")
	err := os.WriteFile(path, []byte("# methods\ndataclay.A.run\n\n  dataclay.B.stop  \n"), 0o644)
	if err != nil {
		t.Fatalf("Error writing descriptors: %v", err)
	}

	out := bytes.Buffer{}
	if err := dumpValues(&out, path, paraver.FirstValue); err != nil {
		t.Fatalf("Error dumping values: %v", err)
	}

	expected := "dataclay.A.run=10000\ndataclay.B.stop=10001\n"
	if out.String() != expected {
		t.Errorf("Expected %q, got %q", expected, out.String())
	}

	values, err := paraver.LoadValues(&out)
	if err != nil {
		t.Fatalf("Error loading dumped values: %v", err)
	}

	if values["dataclay.B.stop"] != 10001 {
		t.Errorf("Expected dumped table to load back, got %v", values)
	}
}

func TestDumpValuesMissingFile(t *testing.T) {
	if err := dumpValues(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing"), paraver.FirstValue); err == nil {
		t.Errorf("Expected error for missing descriptors file")
	}
}

func TestTracedFollowsPthreadOption(t *testing.T) {
	cases := []struct {
		options  paraver.Options
		expected int
	}{
		{options: paraver.PthreadsDisabled(), expected: 0},
		{options: paraver.PthreadOption, expected: 2},
		{options: paraver.EnableAllOptions, expected: 2},
	}

	for _, c := range cases {
		sink := &countingSink{}
		tracer, err := paraver.NewTracer(paraver.Values{"h.H.metrics": 10000}, sink)
		if err != nil {
			t.Fatalf("Error creating tracer: %v", err)
		}

		tracer.Enable()
		tracer.SetOptions(c.options)

		served := false
		handler := traced(tracer, "h.H.metrics", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			served = true
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if !served {
			t.Errorf("Expected handler to be served with options %d", c.options)
		}

		if sink.events != c.expected {
			t.Errorf("Expected %d events with options %d, got %d", c.expected, c.options, sink.events)
		}
	}
}
