// Package walker drives each root pipeline's dependency closure through
// the parse phase and, after every root has finished parsing, the
// create phase — using an explicit stack instead of recursion, since a
// pathological database can nest thousands of descriptor set layouts
// deep and a goroutine stack is not the place to pay for that.
package walker

import (
	"fmt"
	"runtime"
	"time"

	"github.com/vkreplay/vkreplay/internal/constants"
	"github.com/vkreplay/vkreplay/internal/dbfile"
	"github.com/vkreplay/vkreplay/internal/entrystore"
	"github.com/vkreplay/vkreplay/internal/parser"
	"github.com/vkreplay/vkreplay/internal/vk"
)

// Observer receives per-entry notifications as a walk progresses. It is
// the same method shape as the root package's Observer so any
// implementation there satisfies this interface too without either
// package importing the other.
type Observer interface {
	ObserveParse(success bool)
	ObserveCreate(latencyNs uint64, success bool)
	ObserveDestroy()
	ObserveInvalid()
}

type noopObserver struct{}

func (noopObserver) ObserveParse(bool)          {}
func (noopObserver) ObserveCreate(uint64, bool) {}
func (noopObserver) ObserveDestroy()            {}
func (noopObserver) ObserveInvalid()            {}

// Walker resolves and drives one root's dependency closure. A single
// Walker is safe to use from many goroutines concurrently — all shared
// mutable state lives on the entrystore.Entry values themselves, guarded
// by their Status CAS discipline, not on the Walker.
type Walker struct {
	store    *entrystore.Store
	parser   parser.Parser
	driver   vk.Driver
	observer Observer
}

// New builds a Walker over store, decoding payloads with p and calling
// into d to create and destroy driver objects.
func New(store *entrystore.Store, p parser.Parser, d vk.Driver) *Walker {
	return &Walker{store: store, parser: p, driver: d, observer: noopObserver{}}
}

// WithObserver sets the Observer that subsequent Parse/CreateClosure
// calls report through. Returns w for chaining.
func (w *Walker) WithObserver(o Observer) *Walker {
	if o != nil {
		w.observer = o
	}
	return w
}

// frame is one stack entry in an explicit-LIFO walk: the entry being
// visited and how far through its dependency list the walk has
// progressed. Re-pushing the same entry with an advanced next index is
// what replaces a recursive call's return-and-continue.
type frame struct {
	entry *entrystore.Entry
	next  int
}

// ParseClosure walks root's full dependency closure, parsing every
// reachable entry that is not already parsed (or further along) and
// registering AddDependent on each edge exactly once — at the moment
// the entry that owns the edge is the one parsing it. It returns nil
// once root itself reaches at least parsed (possibly invalid); it never
// returns an error for a dependency failure, since that failure is
// recorded on the dependency's own Status instead and observed later by
// whoever tries to create root.
func (w *Walker) ParseClosure(root *entrystore.Entry) error {
	stack := []frame{{entry: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		e := top.entry

		if top.next == 0 {
			if err := w.beginParse(e); err != nil {
				stack = stack[:len(stack)-1]
				continue
			}
		}

		st := e.Status.Load()
		if st == vk.StateParsing {
			// Another goroutine owns this entry's parse; spin until it
			// publishes a terminal-for-this-phase state. Parsing a single
			// entry's payload is bounded and fast, so a plain yield loop
			// is preferable to the bookkeeping a condition variable would
			// need for what is, in practice, a short wait.
			runtime.Gosched()
			continue
		}
		if st == vk.StateInvalid {
			stack = stack[:len(stack)-1]
			continue
		}

		// e is parsed (or further along): walk its dependencies.
		if top.next < len(e.Dependencies) {
			dep := e.Dependencies[top.next]
			top.next++
			depEntry := w.store.Lookup(entrystore.Key{Tag: dep.Tag, Hash: dep.Hash})
			if depEntry.Status.Load() == vk.StateNotParsed {
				stack = append(stack, frame{entry: depEntry})
			}
			continue
		}

		stack = stack[:len(stack)-1]
	}

	return nil
}

// beginParse decompresses and decodes e's payload if e is still
// not_parsed, registering every outgoing dependency edge exactly once.
// It is a no-op if e has already been claimed by another goroutine or
// has moved past parsing.
func (w *Walker) beginParse(e *entrystore.Entry) error {
	if !e.Status.TryBeginParse() {
		return nil
	}

	payload, err := dbfile.GetPayload(e.Record)
	if err != nil {
		e.Status.MarkInvalid()
		w.observer.ObserveParse(false)
		w.observer.ObserveInvalid()
		return fmt.Errorf("walker: decoding payload for %s:%#x: %w", e.Key.Tag, e.Key.Hash, err)
	}

	info, deps, version, hash, err := w.parser.Parse(e.Key.Tag, payload)
	if err != nil {
		e.Status.MarkInvalid()
		w.observer.ObserveParse(false)
		w.observer.ObserveInvalid()
		return fmt.Errorf("walker: parsing %s:%#x: %w", e.Key.Tag, e.Key.Hash, err)
	}
	if version != constants.ParserVersion {
		e.Status.MarkInvalid()
		w.observer.ObserveParse(false)
		w.observer.ObserveInvalid()
		return fmt.Errorf("walker: %s:%#x reported version %d, want %d", e.Key.Tag, e.Key.Hash, version, constants.ParserVersion)
	}
	if hash != e.Key.Hash {
		e.Status.MarkInvalid()
		w.observer.ObserveParse(false)
		w.observer.ObserveInvalid()
		return fmt.Errorf("walker: %s:%#x reported hash %#x", e.Key.Tag, e.Key.Hash, hash)
	}

	for _, dep := range deps {
		depEntry := w.store.Lookup(entrystore.Key{Tag: dep.Tag, Hash: dep.Hash})
		if depEntry == nil {
			e.Status.MarkInvalid()
			w.observer.ObserveParse(false)
			w.observer.ObserveInvalid()
			return fmt.Errorf("walker: %s:%#x depends on missing %s:%#x", e.Key.Tag, e.Key.Hash, dep.Tag, dep.Hash)
		}
		depEntry.AddDependent()
	}

	e.CreateInfo = info
	e.Dependencies = deps
	e.Status.FinishParse()
	w.observer.ObserveParse(true)
	return nil
}

// CreateClosure walks root's dependency closure bottom-up, creating
// every entry whose dependencies have all finished creating (or are
// invalid, in which case root itself becomes invalid instead). It must
// only be called after every root in the same replay has completed
// ParseClosure — see internal/dispatch's barrier — so that every
// dependentBy count is fully established before any entry can be
// considered for destruction.
func (w *Walker) CreateClosure(root *entrystore.Entry) error {
	stack := []frame{{entry: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		e := top.entry

		if e.Status.Invalid() {
			w.release(e)
			stack = stack[:len(stack)-1]
			continue
		}

		if top.next < len(e.Dependencies) {
			dep := e.Dependencies[top.next]
			depEntry := w.store.Lookup(entrystore.Key{Tag: dep.Tag, Hash: dep.Hash})
			switch depEntry.Status.Load() {
			case vk.StateCreated:
				top.next++
			case vk.StateInvalid:
				if !e.Status.Invalid() {
					e.Status.MarkInvalid()
					w.observer.ObserveInvalid()
				}
				top.next++
			case vk.StateCreating:
				runtime.Gosched()
			default: // parsed, not yet pushed for creation
				stack = append(stack, frame{entry: depEntry})
			}
			continue
		}

		// Every dependency has resolved (created or invalid).
		if e.Status.Invalid() {
			w.release(e)
			stack = stack[:len(stack)-1]
			continue
		}

		if err := w.beginCreate(e); err != nil {
			w.release(e)
			stack = stack[:len(stack)-1]
			continue
		}
		if e.Status.Load() == vk.StateCreating {
			runtime.Gosched()
			continue
		}

		w.release(e)
		stack = stack[:len(stack)-1]
	}

	return nil
}

// release runs e's destroy-if-unneeded and dependency-release passes
// exactly once for e's whole lifetime, no matter how many concurrent
// root walks reach e as a shared dependency and each observe it as
// finished (created or invalid). Losing callers are no-ops.
//
// release fires the instant e itself finishes creating (or turns
// invalid), not when the root that reached it finishes. In a chain
// three levels deep (root -> child -> grandchild), the grandchild can
// run destroyIfUnneeded and releaseDependencies — and be fully torn
// down — before the root has even begun its own create call, as long
// as the grandchild had no other live dependents. This is intentional:
// a dependency's lifetime is governed purely by its own refcount, never
// by how far its deepest dependent root has progressed.
func (w *Walker) release(e *entrystore.Entry) {
	if !e.TryBeginReleaseDependencies() {
		return
	}
	w.destroyIfUnneeded(e)
	w.releaseDependencies(e)
}

// beginCreate patches every dependency handle into e's CreateInfo and
// invokes the matching driver Create method, if e is still eligible
// (parsed, not already claimed by another goroutine).
func (w *Walker) beginCreate(e *entrystore.Entry) error {
	if e.Key.Tag == vk.TagApplicationInfo {
		// Metadata-only: nothing to create, just advance past creating.
		if e.Status.Load() == vk.StateParsed {
			e.Status.TryBeginCreate()
			e.Status.FinishCreate()
		}
		return nil
	}

	if !e.Status.TryBeginCreate() {
		return nil
	}

	for _, dep := range e.Dependencies {
		depEntry := w.store.Lookup(entrystore.Key{Tag: dep.Tag, Hash: dep.Hash})
		dep.Patch(depEntry.Handle)
	}

	start := time.Now()
	handle, err := createByTag(w.driver, e.Key.Tag, e.CreateInfo)
	latencyNs := uint64(time.Since(start).Nanoseconds())
	if err != nil {
		e.Status.MarkInvalid()
		w.observer.ObserveCreate(latencyNs, false)
		w.observer.ObserveInvalid()
		return fmt.Errorf("walker: creating %s:%#x: %w", e.Key.Tag, e.Key.Hash, err)
	}

	e.Handle = handle
	e.Status.FinishCreate()
	w.observer.ObserveCreate(latencyNs, true)
	return nil
}

// destroyIfUnneeded destroys e immediately if it has no live dependents
// at all — the case for every root pipeline, since nothing ever depends
// on a root, and the replayer only exists to prime the driver's
// pipeline cache rather than to keep objects around for later use.
func (w *Walker) destroyIfUnneeded(e *entrystore.Entry) {
	if !e.Key.Tag.IsResourceProducing() || !e.Status.Created() {
		return
	}
	if e.DependentCount() != 0 {
		return
	}
	if e.TryBeginDestroy() {
		destroyByTag(w.driver, e.Key.Tag, e.Handle)
		w.observer.ObserveDestroy()
	}
}

// releaseDependencies drops e's refcount on each of its dependencies
// now that e itself has finished creating, destroying any dependency
// whose refcount this call drops to zero. This is what gives the
// replayer its cache-priming shape: a dependency is torn down the
// instant nothing still needs it alive, rather than kept for reuse.
func (w *Walker) releaseDependencies(e *entrystore.Entry) {
	for _, dep := range e.Dependencies {
		depEntry := w.store.Lookup(entrystore.Key{Tag: dep.Tag, Hash: dep.Hash})
		if !depEntry.ReleaseDependent() {
			continue
		}
		if !depEntry.Key.Tag.IsResourceProducing() || !depEntry.Status.Created() {
			continue
		}
		if depEntry.TryBeginDestroy() {
			destroyByTag(w.driver, depEntry.Key.Tag, depEntry.Handle)
			w.observer.ObserveDestroy()
		}
	}
}
