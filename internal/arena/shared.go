package arena

import "sync"

// Shared wraps a Bytes with a mutex, for the handful of call sites that
// allocate outside a worker's dedicated per-thread arena — today, only
// the entries parsed synchronously at database load time (application_info)
// before any worker pool exists.
type Shared struct {
	mu  sync.Mutex
	buf *Bytes
}

// NewShared returns a Shared wrapping a fresh Bytes.
func NewShared() *Shared {
	return &Shared{buf: NewBytes()}
}

// Get is Bytes.Get under the Shared's mutex.
func (s *Shared) Get(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Get(n)
}
