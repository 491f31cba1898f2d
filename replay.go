// Package vkreplay replays a fossilize-format pipeline database against
// a Vulkan driver (or a stand-in implementing vk.Driver), recreating
// every graphics, compute, and ray tracing pipeline it contains purely
// to prime the driver's pipeline cache — nothing created here is kept
// around afterward.
package vkreplay

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/vkreplay/vkreplay/internal/arena"
	"github.com/vkreplay/vkreplay/internal/constants"
	"github.com/vkreplay/vkreplay/internal/control"
	"github.com/vkreplay/vkreplay/internal/dbfile"
	"github.com/vkreplay/vkreplay/internal/dispatch"
	"github.com/vkreplay/vkreplay/internal/entrystore"
	"github.com/vkreplay/vkreplay/internal/logging"
	"github.com/vkreplay/vkreplay/internal/parser"
	"github.com/vkreplay/vkreplay/internal/vk"
	"github.com/vkreplay/vkreplay/internal/walker"
)

// Re-exported so callers never need to import internal/vk directly to
// implement a Driver or inspect a Tag.
type (
	Tag        = vk.Tag
	Handle     = vk.Handle
	Driver     = vk.Driver
	Dependency = vk.Dependency
	CreateInfo = vk.CreateInfo
)

const (
	TagApplicationInfo     = vk.TagApplicationInfo
	TagSampler             = vk.TagSampler
	TagDescriptorSetLayout = vk.TagDescriptorSetLayout
	TagPipelineLayout      = vk.TagPipelineLayout
	TagShaderModule        = vk.TagShaderModule
	TagRenderPass          = vk.TagRenderPass
	TagGraphicsPipeline    = vk.TagGraphicsPipeline
	TagComputePipeline     = vk.TagComputePipeline
	TagRayTracingPipeline  = vk.TagRayTracingPipeline
	TagApplicationBlobLink = vk.TagApplicationBlobLink
)

// Params configures a replay: what database to read and how strictly
// to treat the invariants a well-formed database is expected to hold.
type Params struct {
	// NumThreads is the number of worker goroutines the dispatcher
	// fans root pipelines across. 0 means runtime.NumCPU().
	NumThreads int

	// StrictInvariants is carried on Params but not read by the replay
	// engine. Internal invariant violations (a state machine transition
	// called out of order, such as FinishParse or FinishCreate without a
	// winning begin, or a create-info whose type does not match its tag)
	// panic whatever its value; none of them is converted into a
	// per-entry failure.
	StrictInvariants bool
}

// DefaultParams returns Params with thread count set to "auto" and
// strict invariant checking off.
func DefaultParams() Params {
	return Params{NumThreads: constants.DefaultNumThreads, StrictInvariants: false}
}

// Options carries the runtime collaborators a Replayer needs that
// aren't plain configuration: the driver to create and destroy objects
// against, and the optional logger, metrics observer, and control block
// to report through.
type Options struct {
	Driver   vk.Driver
	Logger   *logging.Logger
	Observer Observer

	// ControlBlockMemory is the mmap'd (or otherwise backed) control
	// block segment to report progress through. Nil means no parent is
	// watching — every control.Block method is then a safe no-op.
	ControlBlockMemory []byte
	ProcessSlot        int
}

// DefaultOptions returns Options with a no-op observer and the package
// default logger; Driver must still be set by the caller.
func DefaultOptions() Options {
	return Options{
		Logger:   logging.Default(),
		Observer: NoOpObserver{},
	}
}

// ReplayState tracks a Replayer's lifecycle.
type ReplayState int32

const (
	ReplayStateCreated ReplayState = iota
	ReplayStateRunning
	ReplayStateDone
)

// TagSummary reports how many entries of one tag reached each terminal
// outcome.
type TagSummary struct {
	Total     int
	Created   int
	Destroyed int
	Invalid   int
}

// Summary is the result of a completed replay.
type Summary struct {
	TotalEntries int
	Created      int
	Destroyed    int
	Invalid      int
	PerTag       map[vk.Tag]TagSummary
	Duration     time.Duration
	Metrics      MetricsSnapshot
}

// Replayer drives one replay of a single database through to
// completion. It is not reusable across databases — construct a new one
// per call to Replay.
type Replayer struct {
	params  Params
	options Options
	metrics *Metrics
	state   atomicReplayState
}

// atomicReplayState is a tiny typed wrapper kept local to this file
// rather than pulled from internal/vk, since ReplayState has nothing to
// do with a single entry's lifecycle.
type atomicReplayState struct {
	v int32
}

func (s *atomicReplayState) load() ReplayState { return ReplayState(s.v) }

// NewReplayer validates params and options and returns a Replayer ready
// to run against database contents supplied to Replay.
func NewReplayer(params Params, options Options) (*Replayer, error) {
	if options.Driver == nil {
		return nil, NewError("NewReplayer", ErrCodeConfig, "Options.Driver is required")
	}
	if options.Logger == nil {
		options.Logger = logging.Default()
	}
	if options.Observer == nil {
		options.Observer = NoOpObserver{}
	}
	metrics := NewMetrics()
	options.Observer = fanOutObserver{a: NewMetricsObserver(metrics), b: options.Observer}
	return &Replayer{
		params:  params,
		options: options,
		metrics: metrics,
	}, nil
}

// Replay parses data as a complete fossilize database file and replays
// every pipeline it contains against the configured Driver, returning a
// Summary once every reachable entry has finished parsing, creating,
// and (for cache-priming's sake) being destroyed again.
func (r *Replayer) Replay(ctx context.Context, data []byte) (*Summary, error) {
	start := time.Now()
	r.state.v = int32(ReplayStateRunning)
	defer func() { r.state.v = int32(ReplayStateDone) }()

	loadResult, err := dbfile.Load(data)
	if err != nil {
		return nil, WrapError("Replay", ErrCodeBadDatabase, err)
	}
	if loadResult.Truncated {
		r.options.Logger.Warn("database file ended mid-record, replaying the records that parsed cleanly",
			"records", len(loadResult.Records))
	}
	if loadResult.DroppedBlobLinks > 0 {
		r.options.Logger.Debug("dropped application_blob_link records", "count", loadResult.DroppedBlobLinks)
	}

	store := entrystore.New(loadResult.Records)

	if err := r.resolveApplicationInfo(store); err != nil {
		return nil, err
	}

	reg := parser.DefaultRegistry()
	wk := walker.New(store, reg, r.options.Driver).WithObserver(r.options.Observer)

	numThreads := r.params.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	dsp := dispatch.New(wk, numThreads)

	roots := store.Roots()
	r.options.Observer.ObserveRootsInFlight(uint32(len(roots)))

	cb, err := control.New(r.options.ControlBlockMemory, r.options.ProcessSlot)
	if err != nil {
		return nil, WrapError("Replay", ErrCodeControlBlock, err)
	}
	if err := cb.Init(staticTotals(roots), uint32(numThreads)); err != nil {
		return nil, WrapError("Replay", ErrCodeControlBlock, err)
	}

	if err := dsp.Run(ctx, roots); err != nil {
		return nil, WrapError("Replay", ErrCodeCreateFailure, err)
	}

	summary := r.buildSummary(store, cb)
	summary.Duration = time.Since(start)
	r.metrics.Stop()
	summary.Metrics = r.metrics.Snapshot()
	return summary, nil
}

// resolveApplicationInfo parses the database's single application_info
// entry synchronously, before any worker pool exists. It is never
// walked by the dependency walker: nothing in the format ever lists it
// as a dependency, so it would otherwise never be visited at all.
func (r *Replayer) resolveApplicationInfo(store *entrystore.Store) error {
	var appInfo *entrystore.Entry
	for _, e := range store.All() {
		if e.Key.Tag == vk.TagApplicationInfo {
			appInfo = e
			break
		}
	}
	if appInfo == nil {
		return NewError("resolveApplicationInfo", ErrCodeApplicationInfo, "database contains no application_info entry")
	}

	if !appInfo.Status.TryBeginParse() {
		return nil
	}

	payload, err := dbfile.GetPayload(appInfo.Record)
	if err != nil {
		appInfo.Status.MarkInvalid()
		return WrapError("resolveApplicationInfo", ErrCodeApplicationInfo, err)
	}

	shared := arena.NewShared()
	buf := shared.Get(len(payload))
	copy(buf, payload)

	info, _, version, _, err := parser.DefaultRegistry().Parse(vk.TagApplicationInfo, buf)
	if err != nil {
		appInfo.Status.MarkInvalid()
		return WrapError("resolveApplicationInfo", ErrCodeApplicationInfo, err)
	}
	if version != constants.ParserVersion {
		appInfo.Status.MarkInvalid()
		return NewError("resolveApplicationInfo", ErrCodeApplicationInfo,
			fmt.Sprintf("application_info reported version %d, want %d", version, constants.ParserVersion))
	}

	appInfo.CreateInfo = info
	appInfo.Status.FinishParse()
	appInfo.Status.TryBeginCreate()
	appInfo.Status.FinishCreate()
	return nil
}

// staticTotals computes the known-ahead-of-time root pipeline count by
// category, for the control block's Init call.
func staticTotals(roots []*entrystore.Entry) control.StaticTotals {
	var totals control.StaticTotals
	for _, r := range roots {
		switch r.Key.Tag {
		case vk.TagGraphicsPipeline:
			totals.Graphics++
		case vk.TagComputePipeline:
			totals.Compute++
		case vk.TagRayTracingPipeline:
			totals.RayTracing++
		}
	}
	return totals
}

// buildSummary scans every entry in the store and classifies its final
// state, reporting it both in aggregate and broken down by tag, and
// reports the same classification into the control block's named
// counters for a parent process polling it.
func (r *Replayer) buildSummary(store *entrystore.Store, cb *control.Block) *Summary {
	summary := &Summary{
		TotalEntries: store.Len(),
		PerTag:       make(map[vk.Tag]TagSummary),
	}

	for _, e := range store.All() {
		ts := summary.PerTag[e.Key.Tag]
		ts.Total++

		if e.Status.Load() != vk.StateNotParsed {
			cb.ObserveParseStart(e.Key.Tag)
		}

		switch {
		case e.Status.Invalid():
			ts.Invalid++
			summary.Invalid++
			if e.CreateInfo == nil {
				cb.ObserveParseFailure(e.Key.Tag)
			} else {
				cb.ObserveParsed(e.Key.Tag)
			}
		case e.Status.Created():
			ts.Created++
			summary.Created++
			cb.ObserveParsed(e.Key.Tag)
			if e.Key.Tag.IsResourceProducing() {
				cb.ObserveCreated(e.Key.Tag)
				if e.Destroyed() {
					ts.Destroyed++
					summary.Destroyed++
				}
			}
		}

		summary.PerTag[e.Key.Tag] = ts
	}

	return summary
}
