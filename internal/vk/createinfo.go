package vk

// CreateInfo is the tagged variant over the create-info kinds. The nine
// concrete types below implement it, one per tag except
// application_blob_link, which has no create-info type because its
// records are dropped at load; Tag() discriminates
// which one a type-erased value actually is, in place of a type switch
// on the empty interface everywhere create_info is handled.
type CreateInfo interface {
	Tag() Tag
}

// Dependency is one edge in an entry's dependency list: the (tag, hash)
// identifying the entry this one depends on, plus a closure that writes
// the resolved handle into the owning CreateInfo once the dependency is
// created. This stands in for a raw writable pointer into the parent's
// create-info (the "handle_slot") so the patch can never outlive the
// struct it targets or be applied from an unsynchronized thread without
// going through the walker's own happens-before discipline.
type Dependency struct {
	Tag   Tag
	Hash  uint64
	Patch func(Handle)
}

// ApplicationInfoCreateInfo is metadata-only: it is parsed and reaches
// created, but never owns a Handle (see Tag.IsResourceProducing).
type ApplicationInfoCreateInfo struct {
	APIVersion         uint32
	ApplicationVersion uint32
	EngineVersion      uint32
	ApplicationName    string
	EngineName         string
}

func (ApplicationInfoCreateInfo) Tag() Tag { return TagApplicationInfo }

// SamplerCreateInfo mirrors VkSamplerCreateInfo's scalar fields.
type SamplerCreateInfo struct {
	MagFilter        uint32
	MinFilter        uint32
	MipmapMode       uint32
	AddressModeU     uint32
	AddressModeV     uint32
	AddressModeW     uint32
	MipLodBias       float32
	AnisotropyEnable bool
	MaxAnisotropy    float32
	CompareEnable    bool
	CompareOp        uint32
	MinLod           float32
	MaxLod           float32
	BorderColor      uint32
}

func (*SamplerCreateInfo) Tag() Tag { return TagSampler }

// DescriptorSetLayoutBinding mirrors VkDescriptorSetLayoutBinding.
type DescriptorSetLayoutBinding struct {
	Binding         uint32
	DescriptorType  uint32
	DescriptorCount uint32
	StageFlags      uint32
}

// DescriptorSetLayoutCreateInfo mirrors VkDescriptorSetLayoutCreateInfo.
// It has no dependencies of its own; it is itself depended on by
// pipeline layouts.
type DescriptorSetLayoutCreateInfo struct {
	Flags    uint32
	Bindings []DescriptorSetLayoutBinding
}

func (*DescriptorSetLayoutCreateInfo) Tag() Tag { return TagDescriptorSetLayout }

// PushConstantRange mirrors VkPushConstantRange.
type PushConstantRange struct {
	StageFlags uint32
	Offset     uint32
	Size       uint32
}

// PipelineLayoutCreateInfo mirrors VkPipelineLayoutCreateInfo. SetLayouts
// holds one Handle slot per descriptor_set_layout dependency; each slot
// is patched in place by that dependency's Dependency.Patch closure.
type PipelineLayoutCreateInfo struct {
	SetLayouts         []Handle
	PushConstantRanges []PushConstantRange
}

func (*PipelineLayoutCreateInfo) Tag() Tag { return TagPipelineLayout }

// ShaderModuleCreateInfo mirrors VkShaderModuleCreateInfo. Code is the
// raw SPIR-V bytecode, an ordinary heap slice allocated while decoding
// the payload; it does not come from an arena.
type ShaderModuleCreateInfo struct {
	Code []byte
}

func (*ShaderModuleCreateInfo) Tag() Tag { return TagShaderModule }

// AttachmentDescription mirrors VkAttachmentDescription.
type AttachmentDescription struct {
	Format         uint32
	Samples        uint32
	LoadOp         uint32
	StoreOp        uint32
	StencilLoadOp  uint32
	StencilStoreOp uint32
	InitialLayout  uint32
	FinalLayout    uint32
}

// SubpassDescription mirrors VkSubpassDescription, referencing
// attachments by index into RenderPassCreateInfo.Attachments.
type SubpassDescription struct {
	ColorAttachments       []uint32
	DepthStencilAttachment int32 // -1 = unused
}

// RenderPassCreateInfo mirrors VkRenderPassCreateInfo. It has no handle
// dependencies; it is itself depended on by graphics pipelines.
type RenderPassCreateInfo struct {
	Attachments []AttachmentDescription
	Subpasses   []SubpassDescription
}

func (*RenderPassCreateInfo) Tag() Tag { return TagRenderPass }

// ShaderStage mirrors one element of VkGraphicsPipelineCreateInfo's
// pStages / VkComputePipelineCreateInfo.stage. Module is patched by the
// shader_module dependency this stage references.
type ShaderStage struct {
	StageFlag  uint32
	Module     Handle
	EntryPoint string
}

// GraphicsPipelineCreateInfo mirrors VkGraphicsPipelineCreateInfo's
// object-reference fields (the fixed-function state the real struct
// also carries — vertex input, rasterization, multisample, blend — is
// out of scope for a replayer that never issues draw calls; only the
// fields the driver's pipeline-cache keying and dependency graph care
// about are modeled).
type GraphicsPipelineCreateInfo struct {
	Stages     []ShaderStage
	Layout     Handle
	RenderPass Handle
	Subpass    uint32
	Topology   uint32
}

func (*GraphicsPipelineCreateInfo) Tag() Tag { return TagGraphicsPipeline }

// ComputePipelineCreateInfo mirrors VkComputePipelineCreateInfo.
type ComputePipelineCreateInfo struct {
	Stage  ShaderStage
	Layout Handle
}

func (*ComputePipelineCreateInfo) Tag() Tag { return TagComputePipeline }

// RayTracingShaderGroup mirrors VkRayTracingShaderGroupCreateInfoKHR,
// referencing stages by index into RayTracingPipelineCreateInfo.Stages.
type RayTracingShaderGroup struct {
	Type              uint32
	GeneralShader     int32
	ClosestHitShader  int32
	AnyHitShader      int32
	IntersectionShader int32
}

// RayTracingPipelineCreateInfo mirrors
// VkRayTracingPipelineCreateInfoKHR's object-reference fields.
type RayTracingPipelineCreateInfo struct {
	Stages            []ShaderStage
	Groups            []RayTracingShaderGroup
	Layout            Handle
	MaxRecursionDepth uint32
}

func (*RayTracingPipelineCreateInfo) Tag() Tag { return TagRayTracingPipeline }
