// Package entrystore holds the in-memory catalog of database entries:
// the map from (tag, hash) to Entry that New builds from the database
// reader's records at load time and the walker and dispatcher drive
// through Status's states afterward. An Entry's Key and Record never
// change after load — only the fields a running replay touches
// (Status, CreateInfo, Dependencies, Handle, refcounting) change after
// that point.
package entrystore

import (
	"sync/atomic"

	"github.com/vkreplay/vkreplay/internal/dbfile"
	"github.com/vkreplay/vkreplay/internal/vk"
)

// Key identifies an entry the way the database file does: a tag and a
// 64-bit content hash. It is comparable, so it doubles as a map key.
type Key struct {
	Tag  vk.Tag
	Hash uint64
}

// Entry is one row of the catalog: everything known about a single
// database record, plus the mutable bookkeeping the walker and
// dispatcher need to parse it once, create it once, and destroy it
// exactly when its last dependent no longer needs it alive.
type Entry struct {
	Key Key

	// Record is the still-encoded record read from the database file —
	// payload bytes in whatever format they were stored in, not yet
	// decompressed or checksum-verified. Set once at load time,
	// read-only after; internal/walker calls dbfile.GetPayload(Record)
	// during the parse phase.
	Record dbfile.Record

	Status vk.Status

	// CreateInfo is nil until FinishParse; set exactly once by the
	// worker that won TryBeginParse, before it calls FinishParse.
	CreateInfo vk.CreateInfo

	// Dependencies is nil until FinishParse; populated by the same
	// worker, in the same pre-FinishParse window, as CreateInfo.
	Dependencies []vk.Dependency

	// Handle is nil (vk.NilHandle) until FinishCreate; set exactly once
	// by the worker that won TryBeginCreate, before it calls
	// FinishCreate. Not resource-producing tags (application_info)
	// never have this set to anything but NilHandle.
	Handle vk.Handle

	// dependentBy counts live dependents: entries whose Dependencies
	// reference this one and which have not yet been destroyed
	// themselves. An entry with dependentBy == 0 after it transitions
	// to created is eligible for immediate destruction — this is how
	// the cache-priming replay differs from a real renderer: every
	// created object is destroyed as soon as nothing still needs it
	// alive to finish being created, rather than kept around for use.
	dependentBy atomic.Int32

	// destroyed guards the driver Destroy call for this entry's own
	// handle, true exactly once per Entry.
	destroyed atomic.Bool

	// dependenciesDestroyed guards the release pass over this entry's
	// own outgoing Dependencies (dropping each target's dependentBy and
	// destroying it if that drop reaches zero). A shared dependency can
	// be reached by more than one root's walk concurrently once it is
	// created, so releasing must run exactly once per Entry regardless
	// of how many walks observe it finished — this flag is that gate.
	dependenciesDestroyed atomic.Bool
}

// AddDependent increments the live-dependent refcount. Called once per
// outgoing Dependency edge, for every entry that has one, before any
// worker can observe the target's create as having finished — so the
// increment always happens before any decrement referencing the same
// edge.
func (e *Entry) AddDependent() {
	e.dependentBy.Add(1)
}

// ReleaseDependent decrements the live-dependent refcount and reports
// whether this call dropped it to zero. At most one caller per Entry
// ever observes true, since the refcount only ever decreases by calls
// that each happen once per edge.
func (e *Entry) ReleaseDependent() (droppedToZero bool) {
	return e.dependentBy.Add(-1) == 0
}

// DependentCount reports the current live-dependent refcount. Used only
// for diagnostics and tests; decisions are made from ReleaseDependent's
// return value, not from reading this and racing.
func (e *Entry) DependentCount() int32 {
	return e.dependentBy.Load()
}

// TryBeginDestroy reports whether the caller is the one that should
// actually call the driver's Destroy method for this entry — true
// exactly once per Entry, for whichever goroutine calls it first.
func (e *Entry) TryBeginDestroy() (ok bool) {
	return e.destroyed.CompareAndSwap(false, true)
}

// Destroyed reports whether this entry's driver object has already been
// torn down. Used for reporting after a replay completes; decisions
// about whether to destroy are always made through TryBeginDestroy.
func (e *Entry) Destroyed() bool {
	return e.destroyed.Load()
}

// TryBeginReleaseDependencies reports whether the caller is the one that
// should release e's outgoing Dependency refcounts (and, transitively,
// destroy any that drop to zero) — true exactly once per Entry. An
// entry that finishes (created or invalid) can be the current stack
// frame in more than one root's concurrent walk when it is a shared
// dependency; only the first to finish may run the release pass.
func (e *Entry) TryBeginReleaseDependencies() (ok bool) {
	return e.dependenciesDestroyed.CompareAndSwap(false, true)
}
