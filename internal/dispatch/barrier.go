package dispatch

import "sync/atomic"

// Barrier is a one-shot rendezvous point for a known, fixed number of
// goroutines: every caller of Wait blocks until all n callers have
// arrived, then all are released together. Unlike a sync.WaitGroup, it
// doesn't distinguish an "adder" from a "waiter" — every goroutine calls
// the same method, which is the shape the parse/create phase split
// needs (every worker does both halves). golang.org/x/sync has no
// primitive for this, so it's built directly on an atomic counter and a
// close-once channel.
type Barrier struct {
	n       int32
	arrived atomic.Int32
	release chan struct{}
}

// NewBarrier returns a Barrier that releases once n goroutines have
// called Wait.
func NewBarrier(n int) *Barrier {
	return &Barrier{n: int32(n), release: make(chan struct{})}
}

// Wait blocks until n goroutines (across the lifetime of this Barrier)
// have called Wait, then returns for all of them at once. Calling Wait
// more than n times total is a programming error — this Barrier is
// single-use by design, matching the one parse/create split per replay.
func (b *Barrier) Wait() {
	if b.arrived.Add(1) == b.n {
		close(b.release)
		return
	}
	<-b.release
}
