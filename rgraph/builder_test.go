// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"

	_ "github.com/gviegas/rhigraph/driver/mock"
)

func newTestRegistry(t *testing.T) (driver.GPU, *registry.Registry) {
	t.Helper()
	drvs := driver.Drivers()
	require.NotEmpty(t, drvs)
	gpu, err := drvs[0].Open()
	require.NoError(t, err)
	return gpu, registry.New()
}

func mustImage(t *testing.T, gpu driver.GPU, reg *registry.Registry, usage driver.Usage) (registry.Handle, driver.ImageView) {
	t.Helper()
	h, err := reg.RegisterImage(registry.ImageDesc{
		Size: driver.Dim3D{Width: 64, Height: 64, Depth: 1}, Format: driver.RGBA8Unorm,
		Samples: 1, MipLevels: 1, ArrayLayers: 1, Usage: usage,
	})
	require.NoError(t, err)
	img, err := gpu.NewImage(driver.RGBA8Unorm, driver.Dim3D{Width: 64, Height: 64, Depth: 1}, 1, 1, 1, usage)
	require.NoError(t, err)
	v, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	require.NoError(t, err)
	require.NoError(t, reg.BindView(h, v))
	return h, v
}

func TestDeclareAccessRejectsIncompatibleQueue(t *testing.T) {
	gpu, reg := newTestRegistry(t)
	h, _ := mustImage(t, gpu, reg, driver.URenderTarget)
	b := New(reg)
	b.BeginFrame(nil)
	p := b.AddPass("compute-pass", driver.Compute)
	err := b.DeclareAccess(p, AccessDescriptor{Resource: h, Kind: ColorTarget})
	assert.ErrorIs(t, err, ErrInvalidAccess)
}

func TestDeclareAccessRejectsOutOfBoundsSubresource(t *testing.T) {
	gpu, reg := newTestRegistry(t)
	h, _ := mustImage(t, gpu, reg, driver.UShaderRead)
	b := New(reg)
	b.BeginFrame(nil)
	p := b.AddPass("read-pass", driver.Graphics)
	err := b.DeclareAccess(p, AccessDescriptor{
		Resource: h, Kind: ShaderRead, Stages: driver.SFragment,
		LayerBase: 3, LayerCount: 1,
	})
	assert.ErrorIs(t, err, ErrInvalidAccess)
}

func TestDeclareAccessRejectsUncoveredUsage(t *testing.T) {
	gpu, reg := newTestRegistry(t)
	h, _ := mustImage(t, gpu, reg, driver.URenderTarget)
	b := New(reg)
	b.BeginFrame(nil)
	p := b.AddPass("copy-pass", driver.Transfer)
	err := b.DeclareAccess(p, AccessDescriptor{Resource: h, Kind: CopySrc})
	assert.ErrorIs(t, err, ErrInvalidAccess)
}

func TestSetColorTargetsRecordsMatchingAccess(t *testing.T) {
	gpu, reg := newTestRegistry(t)
	h, v := mustImage(t, gpu, reg, driver.URenderTarget)
	b := New(reg)
	b.BeginFrame(nil)
	p := b.AddPass("color-pass", driver.Graphics)
	err := b.SetColorTargets(p, []ColorTargetDesc{{View: v, Load: driver.LClear, Store: driver.SStore}}, []registry.Handle{h})
	require.NoError(t, err)

	pp, err := b.pass(p)
	require.NoError(t, err)
	require.Len(t, pp.Accesses, 1)
	assert.Equal(t, ColorTarget, pp.Accesses[0].Kind)
	assert.Equal(t, h, pp.Accesses[0].Resource)
}

func TestEndFrameRequiresExactlyOnePresentAccess(t *testing.T) {
	gpu, reg := newTestRegistry(t)
	h, v := mustImage(t, gpu, reg, driver.URenderTarget)
	b := New(reg)
	b.BeginFrame([]registry.Handle{h})
	p := b.AddPass("color-pass", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p, []ColorTargetDesc{{View: v, Store: driver.SStore}}, []registry.Handle{h}))

	_, err := b.EndFrame()
	assert.ErrorIs(t, err, ErrSwapchainMisuse)
}

func TestEndFrameSucceedsWithOnePresentAccess(t *testing.T) {
	gpu, reg := newTestRegistry(t)
	h, v := mustImage(t, gpu, reg, driver.URenderTarget)
	b := New(reg)
	b.BeginFrame([]registry.Handle{h})
	p := b.AddPass("color-pass", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p, []ColorTargetDesc{{View: v, Store: driver.SStore}}, []registry.Handle{h}))
	require.NoError(t, b.DeclareAccess(p, AccessDescriptor{Resource: h, Kind: Present}))

	frame, err := b.EndFrame()
	require.NoError(t, err)
	assert.Len(t, frame.Passes, 1)
	assert.Equal(t, []registry.Handle{h}, frame.Swapchains)
}

func TestBeginFrameResetsPriorState(t *testing.T) {
	gpu, reg := newTestRegistry(t)
	h, v := mustImage(t, gpu, reg, driver.URenderTarget)
	b := New(reg)
	b.BeginFrame([]registry.Handle{h})
	b.AddPass("stale-pass", driver.Graphics)

	b.BeginFrame(nil)
	assert.Empty(t, b.passes)
	assert.Empty(t, b.swapchains)
	_ = v
}
