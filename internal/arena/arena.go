// Package arena provides bump-allocated byte buffers for the payload
// decompression churn a replay generates. Go's garbage collector makes
// manual arena lifetime tracking unnecessary for correctness — nothing
// here is ever freed early or read after its backing slab is
// reclaimed — but handing every worker goroutine its own growable slab
// to bump-allocate out of still cuts allocator traffic and GC pressure
// dramatically compared to one make([]byte, n) per decompressed
// payload, which is what this package is for. In this module the only
// caller is the root package's application_info parse, through a
// Shared; the walker's workers decompress payloads without an arena.
package arena

import "github.com/vkreplay/vkreplay/internal/constants"

// Bytes is a single growable bump allocator. It is not safe for
// concurrent use — callers that need one per worker goroutine (the
// common case) should construct one Bytes per goroutine, and callers
// that need a shared arena should wrap one in a Shared.
type Bytes struct {
	slabs  [][]byte // all slabs ever allocated, kept alive for the arena's lifetime
	cur    []byte   // the active slab
	offset int      // bytes already handed out of cur
}

// NewBytes returns an empty arena. Its first slab is allocated lazily,
// on the first Get call, sized to fit that call (or constants.ArenaSlabSize,
// whichever is larger).
func NewBytes() *Bytes {
	return &Bytes{}
}

// Get returns a slice of exactly n bytes, bump-allocated out of the
// arena's current slab (growing a new one if the current slab doesn't
// have room). The returned slice's contents are not zeroed beyond what
// a freshly allocated slab already guarantees from Go's runtime.
func (a *Bytes) Get(n int) []byte {
	if a.cur == nil || a.offset+n > len(a.cur) {
		slabSize := constants.ArenaSlabSize
		if n > slabSize {
			slabSize = n
		}
		a.cur = make([]byte, slabSize)
		a.slabs = append(a.slabs, a.cur)
		a.offset = 0
	}
	b := a.cur[a.offset : a.offset+n : a.offset+n]
	a.offset += n
	return b
}

// Reset discards every slab the arena has allocated so far, letting the
// GC reclaim them once nothing still references slices handed out by
// Get. Call this between independent units of work (e.g. once per root
// pipeline a per-root arena was scoped to) rather than holding slabs
// for the lifetime of a long-running replay.
func (a *Bytes) Reset() {
	a.slabs = nil
	a.cur = nil
	a.offset = 0
}

// Stats reports how many slabs the arena currently holds and their
// total size, for diagnostics.
func (a *Bytes) Stats() (slabCount int, totalBytes int) {
	total := 0
	for _, s := range a.slabs {
		total += len(s)
	}
	return len(a.slabs), total
}
