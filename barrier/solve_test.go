// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package barrier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/rhigraph/compiler"
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph"

	_ "github.com/gviegas/rhigraph/driver/mock"
)

func newTestGPU(t *testing.T) driver.GPU {
	t.Helper()
	drvs := driver.Drivers()
	require.NotEmpty(t, drvs)
	gpu, err := drvs[0].Open()
	require.NoError(t, err)
	return gpu
}

func registerImage(t *testing.T, gpu driver.GPU, reg *registry.Registry, transient bool) (registry.Handle, driver.ImageView) {
	t.Helper()
	h, err := reg.RegisterImage(registry.ImageDesc{
		Size: driver.Dim3D{Width: 32, Height: 32, Depth: 1}, Format: driver.RGBA8Unorm,
		Samples: 1, MipLevels: 1, ArrayLayers: 1,
		Usage: driver.URenderTarget | driver.UShaderRead | driver.UShaderWrite, Transient: transient,
	})
	require.NoError(t, err)
	img, err := gpu.NewImage(driver.RGBA8Unorm, driver.Dim3D{Width: 32, Height: 32, Depth: 1}, 1, 1, 1, driver.UGeneric)
	require.NoError(t, err)
	v, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	require.NoError(t, err)
	require.NoError(t, reg.BindView(h, v))
	return h, v
}

func TestSolveEmitsPrologueTransitionOnReadAfterWrite(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	h, v := registerImage(t, gpu, reg, true)

	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p0 := b.AddPass("producer", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p0, []rgraph.ColorTargetDesc{{View: v, Store: driver.SStore}}, []registry.Handle{h}))
	p1 := b.AddPass("consumer", driver.Graphics)
	require.NoError(t, b.DeclareAccess(p1, rgraph.AccessDescriptor{Resource: h, Kind: rgraph.ShaderRead, Stages: driver.SFragment}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, err := compiler.Compile(gpu, reg, frame)
	require.NoError(t, err)
	plan, err := Solve(gpu, reg, cf)
	require.NoError(t, err)

	consumerIdx := int(p1)
	require.Len(t, plan.PerPass[consumerIdx].PrologueTransitions, 1)
	tr := plan.PerPass[consumerIdx].PrologueTransitions[0]
	assert.Equal(t, driver.LColorTarget, tr.LayoutBefore)
	assert.Equal(t, driver.LShaderRead, tr.LayoutAfter)
	assert.Equal(t, driver.AColorWrite, tr.AccessBefore)
	assert.Equal(t, driver.AShaderRead, tr.AccessAfter)
}

func TestSolveSkipsTrivialReadAfterRead(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	h, _ := registerImage(t, gpu, reg, true)

	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p0 := b.AddPass("first-reader", driver.Graphics)
	require.NoError(t, b.DeclareAccess(p0, rgraph.AccessDescriptor{Resource: h, Kind: rgraph.ShaderRead, Stages: driver.SFragment}))
	p1 := b.AddPass("second-reader", driver.Graphics)
	require.NoError(t, b.DeclareAccess(p1, rgraph.AccessDescriptor{Resource: h, Kind: rgraph.ShaderRead, Stages: driver.SFragment}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, err := compiler.Compile(gpu, reg, frame)
	require.NoError(t, err)
	plan, err := Solve(gpu, reg, cf)
	require.NoError(t, err)

	assert.Empty(t, plan.PerPass[p1].PrologueTransitions)
}

func TestSolveSplitsOwnershipTransferAcrossQueueFamilies(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	h, v := registerImage(t, gpu, reg, true)

	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p0 := b.AddPass("compute-writer", driver.Compute)
	require.NoError(t, b.DeclareAccess(p0, rgraph.AccessDescriptor{Resource: h, Kind: rgraph.Storage, Storage: rgraph.WriteOnly, Stages: driver.SCompute}))
	p1 := b.AddPass("graphics-reader", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p1, []rgraph.ColorTargetDesc{{View: v, Store: driver.SStore}}, []registry.Handle{h}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, err := compiler.Compile(gpu, reg, frame)
	require.NoError(t, err)
	plan, err := Solve(gpu, reg, cf)
	require.NoError(t, err)

	require.Len(t, plan.PerPass[p0].EpilogueTransitions, 1)
	require.Len(t, plan.PerPass[p1].PrologueTransitions, 1)
	release := plan.PerPass[p0].EpilogueTransitions[0]
	acquire := plan.PerPass[p1].PrologueTransitions[0]
	assert.NotEqual(t, release.QFamBefore, release.QFamAfter)
	assert.Equal(t, release.QFamAfter, acquire.QFamAfter)
}

func TestSolveSwapchainAcquireAndPresent(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	sc, err := gpu.(driver.Presenter).NewSwapchain(nil, 2)
	require.NoError(t, err)
	idx, acquire, err := sc.Next()
	require.NoError(t, err)
	sh, err := reg.ImportSwapchainImage(sc.Views()[idx], sc.Format(), driver.Dim3D{}, acquire, sc.PresentSemaphore(idx))
	require.NoError(t, err)

	b := rgraph.New(reg)
	b.BeginFrame([]registry.Handle{sh})
	p := b.AddPass("present-pass", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p, []rgraph.ColorTargetDesc{{View: sc.Views()[idx], Store: driver.SStore}}, []registry.Handle{sh}))
	require.NoError(t, b.DeclareAccess(p, rgraph.AccessDescriptor{Resource: sh, Kind: rgraph.Present}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, err := compiler.Compile(gpu, reg, frame)
	require.NoError(t, err)
	plan, err := Solve(gpu, reg, cf)
	require.NoError(t, err)

	require.Len(t, plan.PerPass[p].PrologueAcquire, 1)
	assert.Equal(t, sh, plan.PerPass[p].PrologueAcquire[0])
	require.Len(t, plan.TrailingEpilogueTransitions, 1)
	assert.Equal(t, driver.LPresent, plan.TrailingEpilogueTransitions[0].LayoutAfter)
	require.Len(t, plan.Presents, 1)
	assert.Equal(t, sh, plan.Presents[0])
}

func TestSolveRecordsTailStateForUnconsumedResource(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	h, v := registerImage(t, gpu, reg, false)

	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p := b.AddPass("writer", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p, []rgraph.ColorTargetDesc{{View: v, Store: driver.SStore}}, []registry.Handle{h}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, err := compiler.Compile(gpu, reg, frame)
	require.NoError(t, err)
	plan, err := Solve(gpu, reg, cf)
	require.NoError(t, err)

	tail, ok := plan.TailStates[h]
	require.True(t, ok)
	assert.Equal(t, driver.LColorTarget, tail.Layout)
}
