package walker

import (
	"fmt"

	"github.com/vkreplay/vkreplay/internal/vk"
)

// createByTag calls the Driver method matching tag, type-asserting info
// to the concrete CreateInfo the driver expects. A mismatch between tag
// and the concrete type of info can only happen if internal/parser
// built the wrong pairing, which is a programming error, not a
// data-driven one — so it panics rather than returning an error.
func createByTag(d vk.Driver, tag vk.Tag, info vk.CreateInfo) (vk.Handle, error) {
	switch tag {
	case vk.TagSampler:
		return d.CreateSampler(info.(*vk.SamplerCreateInfo))
	case vk.TagDescriptorSetLayout:
		return d.CreateDescriptorSetLayout(info.(*vk.DescriptorSetLayoutCreateInfo))
	case vk.TagPipelineLayout:
		return d.CreatePipelineLayout(info.(*vk.PipelineLayoutCreateInfo))
	case vk.TagShaderModule:
		return d.CreateShaderModule(info.(*vk.ShaderModuleCreateInfo))
	case vk.TagRenderPass:
		return d.CreateRenderPass(info.(*vk.RenderPassCreateInfo))
	case vk.TagGraphicsPipeline:
		return d.CreateGraphicsPipeline(info.(*vk.GraphicsPipelineCreateInfo))
	case vk.TagComputePipeline:
		return d.CreateComputePipeline(info.(*vk.ComputePipelineCreateInfo))
	case vk.TagRayTracingPipeline:
		return d.CreateRayTracingPipeline(info.(*vk.RayTracingPipelineCreateInfo))
	default:
		panic(fmt.Sprintf("walker: createByTag called with non-resource-producing tag %s", tag))
	}
}

// destroyByTag calls the Driver destroy method matching tag.
func destroyByTag(d vk.Driver, tag vk.Tag, h vk.Handle) {
	switch tag {
	case vk.TagSampler:
		d.DestroySampler(h)
	case vk.TagDescriptorSetLayout:
		d.DestroyDescriptorSetLayout(h)
	case vk.TagPipelineLayout:
		d.DestroyPipelineLayout(h)
	case vk.TagShaderModule:
		d.DestroyShaderModule(h)
	case vk.TagRenderPass:
		d.DestroyRenderPass(h)
	case vk.TagGraphicsPipeline:
		d.DestroyGraphicsPipeline(h)
	case vk.TagComputePipeline:
		d.DestroyComputePipeline(h)
	case vk.TagRayTracingPipeline:
		d.DestroyRayTracingPipeline(h)
	default:
		panic(fmt.Sprintf("walker: destroyByTag called with non-resource-producing tag %s", tag))
	}
}
