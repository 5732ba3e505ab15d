package registrar

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// TaskInfoProvider gives live access to the identity of the current task
type TaskInfoProvider interface {
	TaskID() int
	NumTasks() int
}

// Library is the registration side of a tracing library that asks the host
// application who it is. Callbacks are invoked by the library at any time
// and from any goroutine after registration.
type Library interface {
	SetTaskIDFunction(fn func() uint32)
	SetNumTasksFunction(fn func() uint32)
}

// Registrar owns task identity and hands it to a tracing library
type Registrar struct {
	taskID   atomic.Int64
	numTasks atomic.Int64
	library  Library
	out      io.Writer
}

// Option configures a Registrar
type Option func(*Registrar)

// WithOutput sets where setter notices are printed, os.Stdout by default
func WithOutput(w io.Writer) Option {
	return func(r *Registrar) {
		r.out = w
	}
}

// New creates a registrar with task id 0 out of 1 task
func New(library Library, opts ...Option) *Registrar {
	if library == nil {
		library = nopLibrary{}
	}

	r := &Registrar{library: library, out: os.Stdout}
	r.numTasks.Store(1)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// SetTaskID stores the task id and (re-)registers the task id callback
func (r *Registrar) SetTaskID(id int) {
	fmt.Fprintf(r.out, "** dataClay Extrae Wrapper successfully loaded! Task ID =  %d\n", id)

	r.taskID.Store(int64(id))
	r.library.SetTaskIDFunction(r.taskIDFunction)
}

// SetNumTasks stores the number of tasks and (re-)registers the num tasks callback
func (r *Registrar) SetNumTasks(count int) {
	fmt.Fprintf(r.out, "** dataClay Extrae Wrapper: Num Tasks =  %d\n", count)

	r.numTasks.Store(int64(count))
	r.library.SetNumTasksFunction(r.numTasksFunction)
}

// TaskID returns the current task id
func (r *Registrar) TaskID() int {
	return int(r.taskID.Load())
}

// NumTasks returns the current number of tasks
func (r *Registrar) NumTasks() int {
	return int(r.numTasks.Load())
}

// Callbacks truncate to uint32 the same way a C unsigned return would.
func (r *Registrar) taskIDFunction() uint32 {
	return uint32(r.taskID.Load())
}

func (r *Registrar) numTasksFunction() uint32 {
	return uint32(r.numTasks.Load())
}

type nopLibrary struct{}

func (nopLibrary) SetTaskIDFunction(func() uint32)   {}
func (nopLibrary) SetNumTasksFunction(func() uint32) {}
