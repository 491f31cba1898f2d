// Package constants holds the magic numbers and default tunables shared
// across the replay engine's internal packages.
package constants

// DatabaseMagic is the 12-byte magic prefix of a fossilize database file.
const DatabaseMagic = "\x81FOSSILIZEDB"

// HeaderSize is the total size in bytes of the database file header:
// 12-byte magic, 3 reserved bytes, 1 version byte.
const HeaderSize = 16

// ParserVersion is the only create-info parser version this engine
// understands. Entries reporting any other version are invalid.
const ParserVersion = 6

// ControlBlockMagic is the expected value of the control block's
// version_cookie field.
const ControlBlockMagic uint32 = 0x19BCDE1D

// MaxProcessSlots is the fixed size of the control block's per-process
// arrays (reserved_memory_mib, shared_memory_mib, heartbeats).
const MaxProcessSlots = 256

// DefaultNumThreads is the sentinel meaning "use detected hardware
// concurrency" for both --num-threads and DeviceParams-equivalent
// configuration.
const DefaultNumThreads = 0

// ArenaSlabSize is the size of each slab a Bytes arena grows by when it
// runs out of room.
const ArenaSlabSize = 64 * 1024
