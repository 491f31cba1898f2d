// Package control implements the memory-mapped "control block" a
// supervising parent process can poll while a replay runs: named
// progress counters and a per-process heartbeat, laid out at fixed byte
// offsets so a parent written in any language can read it without
// linking this package.
//
// A Block is always safe to use even when no shared memory segment was
// handed to the replayer — every method is a no-op against a nil
// backing slice, since the control block exists purely for an optional
// external observer and must never become a dependency for replay
// correctness.
package control

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/vkreplay/vkreplay/internal/constants"
	"github.com/vkreplay/vkreplay/internal/vk"
)

// Field byte offsets within the control block. Keep in sync with
// BlockSize below if the layout changes. Offsets whose comment says
// "reserved" are byte-accurate placeholders this core never writes —
// present so a parent polling the segment at a fixed layout sees the
// field it expects, even though nothing here populates it.
const (
	offVersionCookie = 0
	offFutexLock     = offVersionCookie + 4 // reserved

	offSuccessfulGraphics   = offFutexLock + 4
	offSuccessfulCompute    = offSuccessfulGraphics + 4
	offSuccessfulRayTracing = offSuccessfulCompute + 4

	offParsedGraphics   = offSuccessfulRayTracing + 4
	offParsedCompute    = offParsedGraphics + 4
	offParsedRayTracing = offParsedCompute + 4

	offParsedGraphicsFailures   = offParsedRayTracing + 4
	offParsedComputeFailures    = offParsedGraphicsFailures + 4
	offParsedRayTracingFailures = offParsedComputeFailures + 4

	offSuccessfulModules    = offParsedRayTracingFailures + 4
	offParsedModuleFailures = offSuccessfulModules + 4

	// offReservedCounters covers the skipped/cached/banned/validation
	// counters this core has no concept of and always reports as zero.
	offReservedCounters   = offParsedModuleFailures + 4
	reservedCounterSlots  = 6
	offCleanProcessDeaths = offReservedCounters + reservedCounterSlots*4 // reserved
	offDirtyProcessDeaths = offCleanProcessDeaths + 4                   // reserved

	offTotalGraphics   = offDirtyProcessDeaths + 4
	offTotalCompute    = offTotalGraphics + 4
	offTotalRayTracing = offTotalCompute + 4
	offTotalModules    = offTotalRayTracing + 4

	offBannedModules            = offTotalModules + 4 // reserved
	offModuleValidationFailures = offBannedModules + 4 // reserved

	offProgressStarted  = offModuleValidationFailures + 4
	offProgressComplete = offProgressStarted + 4

	offStaticTotalGraphics   = offProgressComplete + 4
	offStaticTotalCompute    = offStaticTotalGraphics + 4
	offStaticTotalRayTracing = offStaticTotalCompute + 4

	offNumRunningProcesses     = offStaticTotalRayTracing + 4
	offNumProcessesMemoryStats = offNumRunningProcesses + 4

	offReservedMemoryMiB = offNumProcessesMemoryStats + 4                    // [constants.MaxProcessSlots]u32
	offSharedMemoryMiB   = offReservedMemoryMiB + constants.MaxProcessSlots*4 // [constants.MaxProcessSlots]u32
	offHeartbeats        = offSharedMemoryMiB + constants.MaxProcessSlots*4   // [constants.MaxProcessSlots]u32

	offDirtyPagesMiB     = offHeartbeats + constants.MaxProcessSlots*4 // reserved, signed
	offIOStallPercentage = offDirtyPagesMiB + 4                        // reserved, signed

	// Message ring: reserved, core never writes any of it.
	offMessageRingWriteCount = offIOStallPercentage + 4
	offMessageRingReadCount  = offMessageRingWriteCount + 4
	offMessageRingSize       = offMessageRingReadCount + 4
	messageRingDataSize      = 256
	offMessageRingData       = offMessageRingSize + 4

	// BlockSize is the total size in bytes a control block segment must
	// be at least as large as.
	BlockSize = offMessageRingData + messageRingDataSize
)

// ErrSharedMemoryIsSmallerThanControlBlock is returned by New when mem
// is non-nil but shorter than BlockSize.
var ErrSharedMemoryIsSmallerThanControlBlock = fmt.Errorf("control: shared memory segment is smaller than the control block")

// ErrInvalidControlBlockMagic is returned by Init when mem is non-nil
// but its inherited version_cookie doesn't match constants.ControlBlockMagic.
var ErrInvalidControlBlockMagic = fmt.Errorf("control: inherited version_cookie does not match control block magic")

// Block is a view over a (possibly mmap'd, possibly nil) fixed-layout
// byte buffer. ProcessSlot identifies which of the fixed heartbeat /
// memory-stat slots this replay process owns.
type Block struct {
	mem         []byte
	processSlot int
}

// New wraps mem as a control block. mem may be nil, in which case every
// method becomes a no-op; otherwise mem must be at least BlockSize bytes
// or New returns ErrSharedMemoryIsSmallerThanControlBlock.
func New(mem []byte, processSlot int) (*Block, error) {
	if mem != nil && len(mem) < BlockSize {
		return nil, ErrSharedMemoryIsSmallerThanControlBlock
	}
	return &Block{mem: mem, processSlot: processSlot}, nil
}

func (b *Block) u32(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&b.mem[off]))
}

// StaticTotals is the known-ahead-of-time root pipeline count by
// category, computed once from the loaded database before any worker
// starts.
type StaticTotals struct {
	Graphics   uint32
	Compute    uint32
	RayTracing uint32
}

// Init runs the control block's initialization protocol: verify the
// cookie a parent process already wrote when it set up this shared
// memory segment, write the static totals and thread count, then set
// progress_started with release ordering so the parent observes a
// fully-initialized segment. It is a no-op for a nil block, since no
// parent is watching.
//
// The core deliberately never sets progress_complete at shutdown — a
// steam-integration quirk where setting completion would cause the
// parent to skip scheduling future replays.
func (b *Block) Init(totals StaticTotals, threadCount uint32) error {
	if b.mem == nil {
		return nil
	}
	if atomic.LoadUint32(b.u32(offVersionCookie)) != constants.ControlBlockMagic {
		return ErrInvalidControlBlockMagic
	}

	atomic.StoreUint32(b.u32(offStaticTotalGraphics), totals.Graphics)
	atomic.StoreUint32(b.u32(offStaticTotalCompute), totals.Compute)
	atomic.StoreUint32(b.u32(offStaticTotalRayTracing), totals.RayTracing)
	atomic.StoreUint32(b.u32(offNumRunningProcesses), threadCount)
	atomic.StoreUint32(b.u32(offNumProcessesMemoryStats), threadCount)

	atomic.StoreUint32(b.u32(offProgressStarted), 1)
	return nil
}

// Cookie returns the control block's version cookie, or 0 for a nil
// block.
func (b *Block) Cookie() uint32 {
	if b.mem == nil {
		return 0
	}
	return atomic.LoadUint32(b.u32(offVersionCookie))
}

// ProgressStarted returns the progress_started flag: 0 before Init has
// run successfully, 1 after.
func (b *Block) ProgressStarted() uint32 {
	if b.mem == nil {
		return 0
	}
	return atomic.LoadUint32(b.u32(offProgressStarted))
}

// ProgressComplete always reads back zero. It exists in the layout
// because a parent process polling this segment expects the field to
// be present at a stable offset, but nothing in this replayer's
// lifecycle corresponds to the "fully drained" signal the field was
// designed for — see Init's doc comment.
func (b *Block) ProgressComplete() uint32 {
	if b.mem == nil {
		return 0
	}
	return atomic.LoadUint32(b.u32(offProgressComplete))
}

// StaticTotalCount returns the static_total_count_* value recorded for
// tag's root category at Init, or 0 for a tag with no such field.
func (b *Block) StaticTotalCount(tag vk.Tag) uint32 {
	if b.mem == nil {
		return 0
	}
	switch tag {
	case vk.TagGraphicsPipeline:
		return atomic.LoadUint32(b.u32(offStaticTotalGraphics))
	case vk.TagComputePipeline:
		return atomic.LoadUint32(b.u32(offStaticTotalCompute))
	case vk.TagRayTracingPipeline:
		return atomic.LoadUint32(b.u32(offStaticTotalRayTracing))
	default:
		return 0
	}
}

// ObserveParseStart records that one more entry of tag's category has
// begun parsing, incrementing total_{graphics,compute,raytracing,modules}.
// Tags outside those four categories are a no-op.
func (b *Block) ObserveParseStart(tag vk.Tag) {
	if b.mem == nil {
		return
	}
	if off, ok := totalOffset(tag); ok {
		atomic.AddUint32(b.u32(off), 1)
	}
}

// ObserveParsed records that one more entry of tag's category finished
// parsing successfully, incrementing parsed_{graphics,compute,raytracing}.
// shader_module has no "parsed" counter of its own in this layout (only
// successful_modules and parsed_module_failures), so it is a no-op here.
func (b *Block) ObserveParsed(tag vk.Tag) {
	if b.mem == nil {
		return
	}
	switch tag {
	case vk.TagGraphicsPipeline:
		atomic.AddUint32(b.u32(offParsedGraphics), 1)
	case vk.TagComputePipeline:
		atomic.AddUint32(b.u32(offParsedCompute), 1)
	case vk.TagRayTracingPipeline:
		atomic.AddUint32(b.u32(offParsedRayTracing), 1)
	}
}

// ObserveParseFailure records a parse failure for tag's category,
// incrementing parsed_{graphics,compute,raytracing}_failures or
// parsed_module_failures.
func (b *Block) ObserveParseFailure(tag vk.Tag) {
	if b.mem == nil {
		return
	}
	switch tag {
	case vk.TagGraphicsPipeline:
		atomic.AddUint32(b.u32(offParsedGraphicsFailures), 1)
	case vk.TagComputePipeline:
		atomic.AddUint32(b.u32(offParsedComputeFailures), 1)
	case vk.TagRayTracingPipeline:
		atomic.AddUint32(b.u32(offParsedRayTracingFailures), 1)
	case vk.TagShaderModule:
		atomic.AddUint32(b.u32(offParsedModuleFailures), 1)
	}
}

// ObserveCreated records that one more entry of tag finished creating
// successfully, incrementing successful_{graphics,compute,raytracing,modules}.
func (b *Block) ObserveCreated(tag vk.Tag) {
	if b.mem == nil {
		return
	}
	switch tag {
	case vk.TagGraphicsPipeline:
		atomic.AddUint32(b.u32(offSuccessfulGraphics), 1)
	case vk.TagComputePipeline:
		atomic.AddUint32(b.u32(offSuccessfulCompute), 1)
	case vk.TagRayTracingPipeline:
		atomic.AddUint32(b.u32(offSuccessfulRayTracing), 1)
	case vk.TagShaderModule:
		atomic.AddUint32(b.u32(offSuccessfulModules), 1)
	}
}

// CreatedCount returns the successful_* count for tag's category, or 0
// for a tag with no such field.
func (b *Block) CreatedCount(tag vk.Tag) uint32 {
	if b.mem == nil {
		return 0
	}
	switch tag {
	case vk.TagGraphicsPipeline:
		return atomic.LoadUint32(b.u32(offSuccessfulGraphics))
	case vk.TagComputePipeline:
		return atomic.LoadUint32(b.u32(offSuccessfulCompute))
	case vk.TagRayTracingPipeline:
		return atomic.LoadUint32(b.u32(offSuccessfulRayTracing))
	case vk.TagShaderModule:
		return atomic.LoadUint32(b.u32(offSuccessfulModules))
	default:
		return 0
	}
}

func totalOffset(tag vk.Tag) (int, bool) {
	switch tag {
	case vk.TagGraphicsPipeline:
		return offTotalGraphics, true
	case vk.TagComputePipeline:
		return offTotalCompute, true
	case vk.TagRayTracingPipeline:
		return offTotalRayTracing, true
	case vk.TagShaderModule:
		return offTotalModules, true
	default:
		return 0, false
	}
}

// Heartbeat writes the current Unix time (in seconds, as supplied by
// the caller so this package never calls time.Now itself) into this
// process's heartbeat slot, so a parent can detect a wedged or crashed
// worker by how stale the slot has gone.
func (b *Block) Heartbeat(unixSeconds uint32) {
	if b.mem == nil || b.processSlot >= constants.MaxProcessSlots {
		return
	}
	atomic.StoreUint32(b.u32(offHeartbeats+b.processSlot*4), unixSeconds)
}

// SetMemoryStats records this process's reserved and shared memory
// usage in MiB, for a parent doing admission control across many
// concurrent replay processes. Neither field is computed by this
// engine today (see design notes); both are left at zero unless a
// caller explicitly sets them, which no current call site does.
func (b *Block) SetMemoryStats(reservedMiB, sharedMiB uint32) {
	if b.mem == nil || b.processSlot >= constants.MaxProcessSlots {
		return
	}
	atomic.StoreUint32(b.u32(offReservedMemoryMiB+b.processSlot*4), reservedMiB)
	atomic.StoreUint32(b.u32(offSharedMemoryMiB+b.processSlot*4), sharedMiB)
}
