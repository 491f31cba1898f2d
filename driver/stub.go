// Package driver provides a public, in-memory vk.Driver implementation
// for callers that have no real Vulkan device to replay against — the
// default backend for cmd/vkreplay when no platform binding is wired
// in, and the fixture every internal package's tests create and destroy
// objects through. Use FailNth to make one specific call fail instead of
// succeeding, for testing error propagation up a dependency chain.
package driver

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vkreplay/vkreplay/internal/vk"
)

// Call records one Create or Destroy invocation the stub observed, in
// the order it happened. Tests assert on Calls to check create/destroy
// ordering (spec scenarios S3-S5) without needing a real driver.
type Call struct {
	Op     string // "create" or "destroy"
	Tag    vk.Tag
	Handle vk.Handle
}

// StubDriver is an in-memory vk.Driver: it hands out monotonically
// increasing handles from Create calls and records every call it sees,
// in order, under a single mutex. It never fails a Create call unless
// told to via FailNth, and never fails a Destroy call.
type StubDriver struct {
	mu    sync.Mutex
	calls []Call

	next atomic.Uint64

	failMu   sync.Mutex
	failNth  map[vk.Tag]int // 1-based call index to fail, per tag; 0 means never
	tagCalls map[vk.Tag]int // Create calls seen so far, per tag
}

// NewStubDriver returns a StubDriver ready to create and destroy
// objects; handle allocation starts at 1, so the zero Handle stays
// reserved for "no handle".
func NewStubDriver() *StubDriver {
	return &StubDriver{
		failNth:  make(map[vk.Tag]int),
		tagCalls: make(map[vk.Tag]int),
	}
}

// FailNth arranges for the n-th Create call (1-based) of the given tag
// to fail with an error instead of allocating a handle. The Driver
// interface never sees a database hash, only a CreateInfo, so this is
// the only deterministic way a test can target one specific entry's
// create call — it relies on the database walk visiting entries of a
// tag in a known order.
func (d *StubDriver) FailNth(tag vk.Tag, n int) {
	d.failMu.Lock()
	defer d.failMu.Unlock()
	d.failNth[tag] = n
}

// Calls returns a copy of every call recorded so far, in order.
func (d *StubDriver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

func (d *StubDriver) record(op string, tag vk.Tag, h vk.Handle) {
	d.mu.Lock()
	d.calls = append(d.calls, Call{Op: op, Tag: tag, Handle: h})
	d.mu.Unlock()
}

func (d *StubDriver) create(tag vk.Tag) (vk.Handle, error) {
	d.failMu.Lock()
	d.tagCalls[tag]++
	callIdx := d.tagCalls[tag]
	shouldFail := d.failNth[tag] != 0 && d.failNth[tag] == callIdx
	d.failMu.Unlock()

	if shouldFail {
		return vk.NilHandle, fmt.Errorf("driver: stub configured to fail %s create #%d", tag, callIdx)
	}

	h := vk.Handle(d.next.Add(1))
	d.record("create", tag, h)
	return h, nil
}

func (d *StubDriver) destroy(tag vk.Tag, h vk.Handle) {
	d.record("destroy", tag, h)
}

func (d *StubDriver) CreateSampler(info *vk.SamplerCreateInfo) (vk.Handle, error) {
	return d.create(vk.TagSampler)
}
func (d *StubDriver) DestroySampler(h vk.Handle) { d.destroy(vk.TagSampler, h) }

func (d *StubDriver) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.Handle, error) {
	return d.create(vk.TagDescriptorSetLayout)
}
func (d *StubDriver) DestroyDescriptorSetLayout(h vk.Handle) { d.destroy(vk.TagDescriptorSetLayout, h) }

func (d *StubDriver) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.Handle, error) {
	return d.create(vk.TagPipelineLayout)
}
func (d *StubDriver) DestroyPipelineLayout(h vk.Handle) { d.destroy(vk.TagPipelineLayout, h) }

func (d *StubDriver) CreateShaderModule(info *vk.ShaderModuleCreateInfo) (vk.Handle, error) {
	return d.create(vk.TagShaderModule)
}
func (d *StubDriver) DestroyShaderModule(h vk.Handle) { d.destroy(vk.TagShaderModule, h) }

func (d *StubDriver) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.Handle, error) {
	return d.create(vk.TagRenderPass)
}
func (d *StubDriver) DestroyRenderPass(h vk.Handle) { d.destroy(vk.TagRenderPass, h) }

func (d *StubDriver) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Handle, error) {
	return d.create(vk.TagGraphicsPipeline)
}
func (d *StubDriver) DestroyGraphicsPipeline(h vk.Handle) { d.destroy(vk.TagGraphicsPipeline, h) }

func (d *StubDriver) CreateComputePipeline(info *vk.ComputePipelineCreateInfo) (vk.Handle, error) {
	return d.create(vk.TagComputePipeline)
}
func (d *StubDriver) DestroyComputePipeline(h vk.Handle) { d.destroy(vk.TagComputePipeline, h) }

func (d *StubDriver) CreateRayTracingPipeline(info *vk.RayTracingPipelineCreateInfo) (vk.Handle, error) {
	return d.create(vk.TagRayTracingPipeline)
}
func (d *StubDriver) DestroyRayTracingPipeline(h vk.Handle) { d.destroy(vk.TagRayTracingPipeline, h) }

var _ vk.Driver = (*StubDriver)(nil)
