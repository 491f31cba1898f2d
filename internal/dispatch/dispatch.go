// Package dispatch chunks root pipelines across worker goroutines and
// drives them through the parse phase, a one-shot barrier, and the
// create phase — the concurrency shape a replay actually runs under.
// internal/walker knows how to resolve a single root's closure;
// dispatch is what turns "many roots" into "many goroutines each
// resolving their own share, synchronized exactly once in the middle."
package dispatch

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/vkreplay/vkreplay/internal/entrystore"
	"github.com/vkreplay/vkreplay/internal/walker"
)

// Dispatcher owns the worker count and the Walker every worker shares.
type Dispatcher struct {
	NumWorkers int
	Walker     *walker.Walker
}

// New returns a Dispatcher with numWorkers goroutines; numWorkers <= 0
// means "use runtime.NumCPU()", matching --num-threads=0's meaning at
// the CLI layer.
func New(w *walker.Walker, numWorkers int) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Dispatcher{NumWorkers: numWorkers, Walker: w}
}

// Run chunks roots across the dispatcher's workers and drives every
// root through ParseClosure, then (after every worker has finished
// every root's parse phase) CreateClosure. It returns an error only
// when ctx is canceled mid-run; per-entry failures are recorded on
// their own Status and surfaced later by inspecting the store, not
// through this return value.
func (d *Dispatcher) Run(ctx context.Context, roots []*entrystore.Entry) error {
	if len(roots) == 0 {
		return nil
	}

	chunks := chunkRoots(roots, d.NumWorkers)
	barrier := NewBarrier(len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			// Pinning each worker to an OS thread keeps the goroutine's
			// cache and TLB footprint stable across the whole closure
			// walk it owns, instead of migrating between Ms mid-walk.
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			// A worker stopped by cancellation still arrives at the
			// barrier, so the other workers are never left waiting on it.
			var parseErr error
			for _, root := range c {
				if parseErr = gctx.Err(); parseErr != nil {
					break
				}
				d.Walker.ParseClosure(root)
			}

			barrier.Wait()
			if parseErr != nil {
				return parseErr
			}

			for _, root := range c {
				if err := gctx.Err(); err != nil {
					return err
				}
				d.Walker.CreateClosure(root)
			}
			return nil
		})
	}
	return g.Wait()
}

// chunkRoots splits roots into at most n contiguous, non-empty slices:
// worker i owns chunk i. Sizes differ by at most one root, with the
// extra root going to the earliest chunks, so the split stays
// contiguous even when len(roots) doesn't divide evenly by n.
func chunkRoots(roots []*entrystore.Entry, n int) [][]*entrystore.Entry {
	if n > len(roots) {
		n = len(roots)
	}
	if n < 1 {
		n = 1
	}

	base := len(roots) / n
	extra := len(roots) % n

	chunks := make([][]*entrystore.Entry, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		if size == 0 {
			continue
		}
		chunks = append(chunks, roots[start:start+size])
		start += size
	}
	return chunks
}
