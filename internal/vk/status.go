package vk

import "sync/atomic"

// State is the underlying integer encoding of a Status. Values are
// ordered so that a plain comparison answers "has this entry reached at
// least X" without a switch, mirroring how the walker reasons about
// progress.
type State int32

const (
	StateNotParsed State = iota
	StateParsing
	StateParsed
	StateCreating
	StateCreated
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateNotParsed:
		return "not_parsed"
	case StateParsing:
		return "parsing"
	case StateParsed:
		return "parsed"
	case StateCreating:
		return "creating"
	case StateCreated:
		return "created"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown_state"
	}
}

// Status is the lock-free state machine attached to every store entry.
// It is CAS-driven: every transition races against every other worker
// touching the same entry, and exactly one winner performs the
// associated side effect (parsing the record, calling the driver's
// Create function). invalid is terminal and absorbs every later
// transition attempt.
//
// The zero value is a valid not_parsed Status.
type Status struct {
	v atomic.Int32
}

// Load returns the current state. Callers deciding whether to act on an
// entry must go through the TryBegin*/Finish* methods instead of
// reading this and branching; Load exists for callers that only need to
// wait for or observe a transition (the walker's spin-wait, diagnostics,
// the control block's progress counters).
func (s *Status) Load() State {
	return State(s.v.Load())
}

// String reports the current state, for logging.
func (s *Status) String() string {
	return s.Load().String()
}

// Invalid reports whether the entry has been permanently marked
// invalid.
func (s *Status) Invalid() bool {
	return s.Load() == StateInvalid
}

// Created reports whether the entry has completed the create phase.
func (s *Status) Created() bool {
	return s.Load() == StateCreated
}

// TryBeginParse attempts the not_parsed -> parsing transition. Exactly
// one caller across all workers observes ok == true for a given entry;
// that caller owns parsing the record. Every other caller gets false
// and nothing else; the state it lost to is not returned, so a caller
// that needs it reads it with Load to decide whether to wait (parsing),
// skip straight past parsing (parsed or later), or stop (invalid).
func (s *Status) TryBeginParse() (ok bool) {
	return s.v.CompareAndSwap(int32(StateNotParsed), int32(StateParsing))
}

// FinishParse transitions parsing -> parsed. It panics if called from
// any other state: only the TryBeginParse winner may call it, and it
// must call it exactly once.
func (s *Status) FinishParse() {
	if !s.v.CompareAndSwap(int32(StateParsing), int32(StateParsed)) {
		panic("vk: FinishParse called without a matching TryBeginParse win")
	}
}

// TryBeginCreate attempts the parsed -> creating transition. As with
// TryBeginParse, exactly one caller wins per entry and becomes
// responsible for invoking the driver's Create function and then
// calling FinishCreate.
func (s *Status) TryBeginCreate() (ok bool) {
	return s.v.CompareAndSwap(int32(StateParsed), int32(StateCreating))
}

// FinishCreate transitions creating -> created.
func (s *Status) FinishCreate() {
	if !s.v.CompareAndSwap(int32(StateCreating), int32(StateCreated)) {
		panic("vk: FinishCreate called without a matching TryBeginCreate win")
	}
}

// MarkInvalid forces the entry into the terminal invalid state from
// whatever state it is currently in. It is idempotent: marking an
// already-invalid entry invalid again is a no-op, not a panic, since
// concurrent failures in sibling dependencies can race to call it.
func (s *Status) MarkInvalid() {
	for {
		cur := s.v.Load()
		if State(cur) == StateInvalid {
			return
		}
		if s.v.CompareAndSwap(cur, int32(StateInvalid)) {
			return
		}
	}
}
