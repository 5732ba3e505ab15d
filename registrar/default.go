package registrar

import (
	"sync"
)

var (
	defaultMu        sync.Mutex
	defaultRegistrar = New(nil)
)

// Default returns the process-wide registrar used by SetTaskID and SetNumTasks
func Default() *Registrar {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	return defaultRegistrar
}

// SetDefaultLibrary replaces the process-wide registrar with one registering
// into the given library. Previously set values are carried over.
func SetDefaultLibrary(library Library) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	next := New(library, WithOutput(defaultRegistrar.out))
	next.taskID.Store(defaultRegistrar.taskID.Load())
	next.numTasks.Store(defaultRegistrar.numTasks.Load())

	defaultRegistrar = next
}

// SetTaskID sets the task id on the process-wide registrar
func SetTaskID(id int) {
	Default().SetTaskID(id)
}

// SetNumTasks sets the number of tasks on the process-wide registrar
func SetNumTasks(count int) {
	Default().SetNumTasks(count)
}
