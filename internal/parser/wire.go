package parser

import (
	"encoding/json"
	"fmt"

	"github.com/vkreplay/vkreplay/internal/vk"
)

// DefaultRegistry returns a Registry with a decoder installed for each
// of the nine tags that are parsed; application_blob_link has none,
// since its records are dropped at load. Dependency hashes in the wire format are
// hex-encoded strings (JSON has no native 64-bit integer type that
// round-trips exactly); hashRef carries one through decode.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(vk.TagApplicationInfo, decodeApplicationInfo)
	r.Register(vk.TagSampler, decodeSampler)
	r.Register(vk.TagDescriptorSetLayout, decodeDescriptorSetLayout)
	r.Register(vk.TagPipelineLayout, decodePipelineLayout)
	r.Register(vk.TagShaderModule, decodeShaderModule)
	r.Register(vk.TagRenderPass, decodeRenderPass)
	r.Register(vk.TagGraphicsPipeline, decodeGraphicsPipeline)
	r.Register(vk.TagComputePipeline, decodeComputePipeline)
	r.Register(vk.TagRayTracingPipeline, decodeRayTracingPipeline)
	return r
}

// hashRef is a dependency reference as it appears on the wire: the hex
// text of a 64-bit hash. Its parse method turns it back into a uint64.
type hashRef string

func (h hashRef) parse() (uint64, error) {
	if h == "" {
		return 0, fmt.Errorf("empty dependency hash")
	}
	var v uint64
	if _, err := fmt.Sscanf(string(h), "%x", &v); err != nil {
		return 0, fmt.Errorf("malformed dependency hash %q: %w", string(h), err)
	}
	return v, nil
}

func decodeApplicationInfo(payload []byte) (vk.CreateInfo, []vk.Dependency, error) {
	var w struct {
		APIVersion         uint32 `json:"api_version"`
		ApplicationVersion uint32 `json:"application_version"`
		EngineVersion      uint32 `json:"engine_version"`
		ApplicationName    string `json:"application_name"`
		EngineName         string `json:"engine_name"`
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, nil, err
	}
	info := vk.ApplicationInfoCreateInfo{
		APIVersion:         w.APIVersion,
		ApplicationVersion: w.ApplicationVersion,
		EngineVersion:      w.EngineVersion,
		ApplicationName:    w.ApplicationName,
		EngineName:         w.EngineName,
	}
	return info, nil, nil
}

func decodeSampler(payload []byte) (vk.CreateInfo, []vk.Dependency, error) {
	var info vk.SamplerCreateInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, nil, err
	}
	return &info, nil, nil
}

func decodeDescriptorSetLayout(payload []byte) (vk.CreateInfo, []vk.Dependency, error) {
	var info vk.DescriptorSetLayoutCreateInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, nil, err
	}
	return &info, nil, nil
}

func decodePipelineLayout(payload []byte) (vk.CreateInfo, []vk.Dependency, error) {
	var w struct {
		SetLayouts         []hashRef              `json:"set_layouts"`
		PushConstantRanges []vk.PushConstantRange `json:"push_constant_ranges"`
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, nil, err
	}

	info := &vk.PipelineLayoutCreateInfo{
		SetLayouts:         make([]vk.Handle, len(w.SetLayouts)),
		PushConstantRanges: w.PushConstantRanges,
	}

	deps := make([]vk.Dependency, 0, len(w.SetLayouts))
	for i, ref := range w.SetLayouts {
		hash, err := ref.parse()
		if err != nil {
			return nil, nil, fmt.Errorf("set_layouts[%d]: %w", i, err)
		}
		slot := i
		deps = append(deps, vk.Dependency{
			Tag:  vk.TagDescriptorSetLayout,
			Hash: hash,
			Patch: func(h vk.Handle) {
				info.SetLayouts[slot] = h
			},
		})
	}
	return info, deps, nil
}

func decodeShaderModule(payload []byte) (vk.CreateInfo, []vk.Dependency, error) {
	var w struct {
		Code []byte `json:"code"` // encoding/json base64-decodes []byte fields automatically
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, nil, err
	}
	return &vk.ShaderModuleCreateInfo{Code: w.Code}, nil, nil
}

func decodeRenderPass(payload []byte) (vk.CreateInfo, []vk.Dependency, error) {
	var info vk.RenderPassCreateInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, nil, err
	}
	return &info, nil, nil
}

// wireShaderStage mirrors vk.ShaderStage but references its module by
// hash instead of by Handle.
type wireShaderStage struct {
	StageFlag  uint32  `json:"stage_flag"`
	Module     hashRef `json:"module"`
	EntryPoint string  `json:"entry_point"`
}

// resolveStages decodes a []wireShaderStage into parallel []vk.ShaderStage
// and shader_module Dependency entries, patching stages[i].Module once
// each dependency is created.
func resolveStages(wireStages []wireShaderStage, stages []vk.ShaderStage) ([]vk.Dependency, error) {
	deps := make([]vk.Dependency, 0, len(wireStages))
	for i, ws := range wireStages {
		stages[i] = vk.ShaderStage{StageFlag: ws.StageFlag, EntryPoint: ws.EntryPoint}
		hash, err := ws.Module.parse()
		if err != nil {
			return nil, fmt.Errorf("stages[%d].module: %w", i, err)
		}
		slot := i
		deps = append(deps, vk.Dependency{
			Tag:  vk.TagShaderModule,
			Hash: hash,
			Patch: func(h vk.Handle) {
				stages[slot].Module = h
			},
		})
	}
	return deps, nil
}

func decodeGraphicsPipeline(payload []byte) (vk.CreateInfo, []vk.Dependency, error) {
	var w struct {
		Stages     []wireShaderStage `json:"stages"`
		Layout     hashRef           `json:"layout"`
		RenderPass hashRef           `json:"render_pass"`
		Subpass    uint32            `json:"subpass"`
		Topology   uint32            `json:"topology"`
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, nil, err
	}

	info := &vk.GraphicsPipelineCreateInfo{
		Stages:   make([]vk.ShaderStage, len(w.Stages)),
		Subpass:  w.Subpass,
		Topology: w.Topology,
	}

	deps, err := resolveStages(w.Stages, info.Stages)
	if err != nil {
		return nil, nil, err
	}

	layoutHash, err := w.Layout.parse()
	if err != nil {
		return nil, nil, fmt.Errorf("layout: %w", err)
	}
	deps = append(deps, vk.Dependency{
		Tag:  vk.TagPipelineLayout,
		Hash: layoutHash,
		Patch: func(h vk.Handle) {
			info.Layout = h
		},
	})

	rpHash, err := w.RenderPass.parse()
	if err != nil {
		return nil, nil, fmt.Errorf("render_pass: %w", err)
	}
	deps = append(deps, vk.Dependency{
		Tag:  vk.TagRenderPass,
		Hash: rpHash,
		Patch: func(h vk.Handle) {
			info.RenderPass = h
		},
	})

	return info, deps, nil
}

func decodeComputePipeline(payload []byte) (vk.CreateInfo, []vk.Dependency, error) {
	var w struct {
		Stage  wireShaderStage `json:"stage"`
		Layout hashRef         `json:"layout"`
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, nil, err
	}

	info := &vk.ComputePipelineCreateInfo{
		Stage: vk.ShaderStage{StageFlag: w.Stage.StageFlag, EntryPoint: w.Stage.EntryPoint},
	}
	stageHash, err := w.Stage.Module.parse()
	if err != nil {
		return nil, nil, fmt.Errorf("stage.module: %w", err)
	}
	deps := []vk.Dependency{{
		Tag:  vk.TagShaderModule,
		Hash: stageHash,
		Patch: func(h vk.Handle) {
			info.Stage.Module = h
		},
	}}

	layoutHash, err := w.Layout.parse()
	if err != nil {
		return nil, nil, fmt.Errorf("layout: %w", err)
	}
	deps = append(deps, vk.Dependency{
		Tag:  vk.TagPipelineLayout,
		Hash: layoutHash,
		Patch: func(h vk.Handle) {
			info.Layout = h
		},
	})

	return info, deps, nil
}

func decodeRayTracingPipeline(payload []byte) (vk.CreateInfo, []vk.Dependency, error) {
	var w struct {
		Stages            []wireShaderStage          `json:"stages"`
		Groups            []vk.RayTracingShaderGroup `json:"groups"`
		Layout            hashRef                    `json:"layout"`
		MaxRecursionDepth uint32                     `json:"max_recursion_depth"`
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, nil, err
	}

	info := &vk.RayTracingPipelineCreateInfo{
		Stages:            make([]vk.ShaderStage, len(w.Stages)),
		Groups:            w.Groups,
		MaxRecursionDepth: w.MaxRecursionDepth,
	}

	deps, err := resolveStages(w.Stages, info.Stages)
	if err != nil {
		return nil, nil, err
	}

	layoutHash, err := w.Layout.parse()
	if err != nil {
		return nil, nil, fmt.Errorf("layout: %w", err)
	}
	deps = append(deps, vk.Dependency{
		Tag:  vk.TagPipelineLayout,
		Hash: layoutHash,
		Patch: func(h vk.Handle) {
			info.Layout = h
		},
	})

	return info, deps, nil
}
