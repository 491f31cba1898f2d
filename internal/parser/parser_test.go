package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkreplay/vkreplay/internal/parser"
	"github.com/vkreplay/vkreplay/internal/vk"
)

func Test_DefaultRegistry_ApplicationInfo(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	info, deps, _, _, err := reg.Parse(vk.TagApplicationInfo, []byte(
		`{"api_version":4198400,"application_version":1,"engine_version":2,"application_name":"app","engine_name":"eng"}`))
	require.NoError(t, err)
	require.Empty(t, deps)

	ai, ok := info.(vk.ApplicationInfoCreateInfo)
	require.True(t, ok)
	require.Equal(t, uint32(4198400), ai.APIVersion)
	require.Equal(t, "app", ai.ApplicationName)
	require.Equal(t, "eng", ai.EngineName)
}

func Test_DefaultRegistry_Sampler_NoDependencies(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	info, deps, _, _, err := reg.Parse(vk.TagSampler, []byte(`{"MagFilter":1,"MinFilter":1}`))
	require.NoError(t, err)
	require.Empty(t, deps)

	s, ok := info.(*vk.SamplerCreateInfo)
	require.True(t, ok)
	require.Equal(t, uint32(1), s.MagFilter)
}

func Test_DefaultRegistry_DescriptorSetLayout_NoDependencies(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	info, deps, _, _, err := reg.Parse(vk.TagDescriptorSetLayout, []byte(
		`{"Bindings":[{"Binding":0,"DescriptorType":1,"DescriptorCount":1,"StageFlags":1}]}`))
	require.NoError(t, err)
	require.Empty(t, deps)

	dsl, ok := info.(*vk.DescriptorSetLayoutCreateInfo)
	require.True(t, ok)
	require.Len(t, dsl.Bindings, 1)
}

func Test_DefaultRegistry_PipelineLayout_PatchesSetLayoutSlots(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	info, deps, _, _, err := reg.Parse(vk.TagPipelineLayout, []byte(
		`{"set_layouts":["000000000000000a","000000000000000b"],"push_constant_ranges":[]}`))
	require.NoError(t, err)
	require.Len(t, deps, 2)
	require.Equal(t, vk.TagDescriptorSetLayout, deps[0].Tag)
	require.Equal(t, uint64(0xa), deps[0].Hash)
	require.Equal(t, uint64(0xb), deps[1].Hash)

	pl, ok := info.(*vk.PipelineLayoutCreateInfo)
	require.True(t, ok)
	require.Len(t, pl.SetLayouts, 2)

	deps[0].Patch(vk.Handle(111))
	deps[1].Patch(vk.Handle(222))
	require.Equal(t, vk.Handle(111), pl.SetLayouts[0])
	require.Equal(t, vk.Handle(222), pl.SetLayouts[1])
}

func Test_DefaultRegistry_PipelineLayout_BadHashIsAnError(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	_, _, _, _, err := reg.Parse(vk.TagPipelineLayout, []byte(
		`{"set_layouts":["not-hex"],"push_constant_ranges":[]}`))
	require.Error(t, err)
}

func Test_DefaultRegistry_ShaderModule_DecodesBase64Code(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	// "code" is base64 for the bytes {0x63, 0x6f, 0x64, 0x65}
	info, deps, _, _, err := reg.Parse(vk.TagShaderModule, []byte(`{"code":"Y29kZQ=="}`))
	require.NoError(t, err)
	require.Empty(t, deps)

	sm, ok := info.(*vk.ShaderModuleCreateInfo)
	require.True(t, ok)
	require.Equal(t, []byte("code"), sm.Code)
}

func Test_DefaultRegistry_RenderPass_NoDependencies(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	info, deps, _, _, err := reg.Parse(vk.TagRenderPass, []byte(`{"Attachments":[],"Subpasses":[]}`))
	require.NoError(t, err)
	require.Empty(t, deps)
	require.IsType(t, &vk.RenderPassCreateInfo{}, info)
}

func Test_DefaultRegistry_GraphicsPipeline_PatchesStageLayoutAndRenderPass(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	info, deps, _, _, err := reg.Parse(vk.TagGraphicsPipeline, []byte(
		`{"stages":[{"stage_flag":1,"module":"0000000000000001","entry_point":"main"}],`+
			`"layout":"0000000000000002","render_pass":"0000000000000003","subpass":0,"topology":3}`))
	require.NoError(t, err)
	require.Len(t, deps, 3) // one shader stage, then layout, then render_pass

	require.Equal(t, vk.TagShaderModule, deps[0].Tag)
	require.Equal(t, uint64(1), deps[0].Hash)
	require.Equal(t, vk.TagPipelineLayout, deps[1].Tag)
	require.Equal(t, uint64(2), deps[1].Hash)
	require.Equal(t, vk.TagRenderPass, deps[2].Tag)
	require.Equal(t, uint64(3), deps[2].Hash)

	gp, ok := info.(*vk.GraphicsPipelineCreateInfo)
	require.True(t, ok)

	deps[0].Patch(vk.Handle(10))
	deps[1].Patch(vk.Handle(20))
	deps[2].Patch(vk.Handle(30))
	require.Equal(t, vk.Handle(10), gp.Stages[0].Module)
	require.Equal(t, vk.Handle(20), gp.Layout)
	require.Equal(t, vk.Handle(30), gp.RenderPass)
}

func Test_DefaultRegistry_ComputePipeline_RequiresShaderAndLayout(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	info, deps, _, _, err := reg.Parse(vk.TagComputePipeline, []byte(
		`{"stage":{"stage_flag":32,"module":"0000000000000005","entry_point":"main"},"layout":"0000000000000006"}`))
	require.NoError(t, err)
	require.Len(t, deps, 2)

	cp, ok := info.(*vk.ComputePipelineCreateInfo)
	require.True(t, ok)
	deps[0].Patch(vk.Handle(50))
	deps[1].Patch(vk.Handle(60))
	require.Equal(t, vk.Handle(50), cp.Stage.Module)
	require.Equal(t, vk.Handle(60), cp.Layout)
}

func Test_DefaultRegistry_ComputePipeline_MissingModuleIsAnError(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	_, _, _, _, err := reg.Parse(vk.TagComputePipeline, []byte(
		`{"stage":{"stage_flag":32,"entry_point":"main"},"layout":"0000000000000006"}`))
	require.Error(t, err)
}

func Test_DefaultRegistry_RayTracingPipeline_PatchesEveryStageAndLayout(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	info, deps, _, _, err := reg.Parse(vk.TagRayTracingPipeline, []byte(
		`{"stages":[{"stage_flag":1,"module":"0000000000000007","entry_point":"main"}],`+
			`"groups":[{"Type":0,"GeneralShader":0,"ClosestHitShader":-1,"AnyHitShader":-1,"IntersectionShader":-1}],`+
			`"layout":"0000000000000008","max_recursion_depth":1}`))
	require.NoError(t, err)
	require.Len(t, deps, 2)

	rtp, ok := info.(*vk.RayTracingPipelineCreateInfo)
	require.True(t, ok)
	require.Len(t, rtp.Groups, 1)
	require.Equal(t, uint32(1), rtp.MaxRecursionDepth)

	deps[0].Patch(vk.Handle(70))
	deps[1].Patch(vk.Handle(80))
	require.Equal(t, vk.Handle(70), rtp.Stages[0].Module)
	require.Equal(t, vk.Handle(80), rtp.Layout)
}

func Test_DefaultRegistry_UnknownTag_IsAnError(t *testing.T) {
	t.Parallel()

	reg := parser.NewRegistry()
	_, _, _, _, err := reg.Parse(vk.TagSampler, []byte(`{}`))
	require.Error(t, err)
}

func Test_DefaultRegistry_MalformedJSON_IsAnError(t *testing.T) {
	t.Parallel()

	reg := parser.DefaultRegistry()
	_, _, _, _, err := reg.Parse(vk.TagRenderPass, []byte(`not json`))
	require.Error(t, err)
}
