package driver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkreplay/vkreplay/driver"
	"github.com/vkreplay/vkreplay/internal/vk"
)

func Test_StubDriver_Assigns_Increasing_Nonzero_Handles(t *testing.T) {
	t.Parallel()

	d := driver.NewStubDriver()

	h1, err := d.CreateSampler(&vk.SamplerCreateInfo{})
	require.NoError(t, err)
	require.True(t, h1.Valid())

	h2, err := d.CreateSampler(&vk.SamplerCreateInfo{})
	require.NoError(t, err)
	require.True(t, h2.Valid())
	require.NotEqual(t, h1, h2)
}

func Test_StubDriver_Records_Call_Order(t *testing.T) {
	t.Parallel()

	d := driver.NewStubDriver()

	hb, err := d.CreateSampler(&vk.SamplerCreateInfo{})
	require.NoError(t, err)
	hc, err := d.CreateRenderPass(&vk.RenderPassCreateInfo{})
	require.NoError(t, err)
	d.DestroySampler(hb)
	d.DestroyRenderPass(hc)

	calls := d.Calls()
	require.Len(t, calls, 4)
	require.Equal(t, driver.Call{Op: "create", Tag: vk.TagSampler, Handle: hb}, calls[0])
	require.Equal(t, driver.Call{Op: "create", Tag: vk.TagRenderPass, Handle: hc}, calls[1])
	require.Equal(t, driver.Call{Op: "destroy", Tag: vk.TagSampler, Handle: hb}, calls[2])
	require.Equal(t, driver.Call{Op: "destroy", Tag: vk.TagRenderPass, Handle: hc}, calls[3])
}

func Test_StubDriver_FailNth_Fails_Only_The_Targeted_Call(t *testing.T) {
	t.Parallel()

	d := driver.NewStubDriver()
	d.FailNth(vk.TagShaderModule, 2)

	_, err := d.CreateShaderModule(&vk.ShaderModuleCreateInfo{})
	require.NoError(t, err)

	_, err = d.CreateShaderModule(&vk.ShaderModuleCreateInfo{})
	require.Error(t, err)

	_, err = d.CreateShaderModule(&vk.ShaderModuleCreateInfo{})
	require.NoError(t, err)
}

var _ vk.Driver = (*driver.StubDriver)(nil)
