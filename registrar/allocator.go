package registrar

import "sync/atomic"

// Allocator hands out task ids to tracing processes started one after another
// on the same host. Every initialised process takes the next id.
type Allocator struct {
	next atomic.Int64
}

// NewAllocator creates an allocator that hands out start first
func NewAllocator(start int) *Allocator {
	a := &Allocator{}
	a.next.Store(int64(start))
	return a
}

// Next returns the current available id and moves past it
func (a *Allocator) Next() int {
	return int(a.next.Add(1) - 1)
}

// Current returns the id the next call to Next will hand out
func (a *Allocator) Current() int {
	return int(a.next.Load())
}

// Reset makes id the current available id
func (a *Allocator) Reset(id int) {
	a.next.Store(int64(id))
}

// Assign takes the next id from the allocator and makes it the registrar's
// task id, with the number of tasks covering every id handed out so far.
func Assign(r *Registrar, a *Allocator) int {
	id := a.Next()

	r.SetTaskID(id)
	r.SetNumTasks(id + 1)

	return id
}
