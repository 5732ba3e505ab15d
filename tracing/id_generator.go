package tracing

import (
	"context"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// taskIDGenerator is the same as randomIDGenerator from upstream, except that
// span ids start with the big endian task id, so spans of different tasks
// never collide.
type taskIDGenerator struct {
	sync.Mutex
	library    *Library
	randSource *rand.Rand
}

func newTaskIDGenerator(library *Library) *taskIDGenerator {
	gen := &taskIDGenerator{library: library}
	gen.randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
	return gen
}

// See: https://github.com/open-telemetry/opentelemetry-go/blob/v1.19.0/sdk/trace/id_generator.go#L51
func (gen *taskIDGenerator) NewSpanID(_ context.Context, _ trace.TraceID) trace.SpanID {
	gen.Lock()
	defer gen.Unlock()
	return gen.spanID()
}

// See: https://github.com/open-telemetry/opentelemetry-go/blob/v1.19.0/sdk/trace/id_generator.go#L61
func (gen *taskIDGenerator) NewIDs(_ context.Context) (trace.TraceID, trace.SpanID) {
	gen.Lock()
	defer gen.Unlock()
	tid := trace.TraceID{}
	_, _ = gen.randSource.Read(tid[:])
	return tid, gen.spanID()
}

// spanID must be called with the lock held
func (gen *taskIDGenerator) spanID() trace.SpanID {
	sid := trace.SpanID{}
	binary.BigEndian.PutUint32(sid[:4], gen.library.TaskID())

	// all zero span ids are invalid, keep drawing until the random half is not
	for !sid.IsValid() || sid[4]|sid[5]|sid[6]|sid[7] == 0 {
		_, _ = gen.randSource.Read(sid[4:])
	}

	return sid
}
