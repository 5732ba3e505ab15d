package paraver

// Options is the instrumentation option bitmask understood by the tracing library
type Options uint32

const (
	// DisableAllOptions turns every instrumentation off
	DisableAllOptions Options = 0
	CallerOption      Options = 1
	HWCOption         Options = 2
	MPIHWCOption      Options = 4
	MPIOption         Options = 8
	OMPOption         Options = 16
	OMPHWCOption      Options = 32
	UFHWCOption       Options = 64
	PthreadOption     Options = 128
	PthreadHWCOption  Options = 256
	SamplingOption    Options = 512
	// EnableAllOptions turns every instrumentation on
	EnableAllOptions = CallerOption | HWCOption | MPIHWCOption | MPIOption | OMPOption |
		OMPHWCOption | UFHWCOption | PthreadOption | PthreadHWCOption | SamplingOption
)

// Has reports whether every bit of o2 is set
func (o Options) Has(o2 Options) bool {
	return o&o2 == o2
}

// PthreadsDisabled is everything except pthread instrumentation
func PthreadsDisabled() Options {
	return EnableAllOptions &^ PthreadOption
}
