package vk

// Handle is an opaque, type-erased driver object handle. The zero value
// means "no handle" — either the entry isn't resource-producing or it
// hasn't been created yet.
type Handle uint64

// NilHandle is the zero handle.
const NilHandle Handle = 0

// Valid reports whether h refers to a live driver object.
func (h Handle) Valid() bool {
	return h != NilHandle
}
