package entrystore

import (
	"fmt"

	"github.com/vkreplay/vkreplay/internal/dbfile"
)

// Store is the catalog built by the database reader: every entry seen
// in the file, keyed by (tag, hash), with later duplicates replacing
// earlier ones (matching the database format's append-only update
// semantics). Once returned from New, the map itself never grows or
// shrinks — only the mutable fields inside each *Entry change as a
// replay runs.
type Store struct {
	entries map[Key]*Entry
}

// New builds a Store from the ordered list of records a dbfile.Load
// produced. Records appearing later with the same key overwrite earlier
// ones.
func New(records []dbfile.Record) *Store {
	s := &Store{entries: make(map[Key]*Entry, len(records))}
	for _, r := range records {
		key := Key{Tag: r.Tag, Hash: r.Hash}
		s.entries[key] = &Entry{
			Key:    key,
			Record: r,
		}
	}
	return s
}

// Lookup returns the entry for key, or nil if the database never
// contained it. A nil result at dependency-resolution time means a
// dangling reference and is always a hard parse error, never silently
// skipped.
func (s *Store) Lookup(key Key) *Entry {
	return s.entries[key]
}

// MustLookup is Lookup but panics on a miss. Used in the small number of
// call sites that have already validated the key exists (e.g. the
// walker re-visiting a frame it itself pushed).
func (s *Store) MustLookup(key Key) *Entry {
	e := s.entries[key]
	if e == nil {
		panic(fmt.Sprintf("entrystore: missing entry for %s:%#x", key.Tag, key.Hash))
	}
	return e
}

// Len reports the number of distinct (tag, hash) entries in the store.
func (s *Store) Len() int {
	return len(s.entries)
}

// Roots returns every entry whose tag is a root pipeline kind (graphics,
// compute, or raytracing) — the set the work dispatcher chunks across
// worker threads. Order is unspecified; callers that need determinism
// (tests, --num-threads=1 runs) should sort by Key themselves.
func (s *Store) Roots() []*Entry {
	var roots []*Entry
	for _, e := range s.entries {
		if e.Key.Tag.IsRoot() {
			roots = append(roots, e)
		}
	}
	return roots
}

// All returns every entry in the store, in unspecified order. Used by
// the control block updater to compute aggregate progress counters.
func (s *Store) All() []*Entry {
	all := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	return all
}
