package vk

// Driver is the privileged collaborator the replay engine calls into to
// actually create and destroy Vulkan objects. It is an interface purely
// so the engine can be exercised against a recording stub in tests; a
// real implementation would translate each method into the matching
// vkCreate*/vkDestroy* call against a live VkDevice.
//
// Every Create method returns the new Handle and an error; on error the
// engine marks the entry (and everything that transitively depends on
// it) invalid and never calls the matching Destroy method. Destroy
// methods do not return an error: by the time an entry is torn down it
// has already served its only purpose, priming the driver's pipeline
// cache, so the engine never learns of a destroy failure; an
// implementation that sees one handles it itself.
type Driver interface {
	CreateSampler(info *SamplerCreateInfo) (Handle, error)
	DestroySampler(h Handle)

	CreateDescriptorSetLayout(info *DescriptorSetLayoutCreateInfo) (Handle, error)
	DestroyDescriptorSetLayout(h Handle)

	CreatePipelineLayout(info *PipelineLayoutCreateInfo) (Handle, error)
	DestroyPipelineLayout(h Handle)

	CreateShaderModule(info *ShaderModuleCreateInfo) (Handle, error)
	DestroyShaderModule(h Handle)

	CreateRenderPass(info *RenderPassCreateInfo) (Handle, error)
	DestroyRenderPass(h Handle)

	CreateGraphicsPipeline(info *GraphicsPipelineCreateInfo) (Handle, error)
	DestroyGraphicsPipeline(h Handle)

	CreateComputePipeline(info *ComputePipelineCreateInfo) (Handle, error)
	DestroyComputePipeline(h Handle)

	CreateRayTracingPipeline(info *RayTracingPipelineCreateInfo) (Handle, error)
	DestroyRayTracingPipeline(h Handle)
}
