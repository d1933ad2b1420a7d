// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// linearFrame builds a frame with two Graphics passes linked by a
// write-then-read dependency on the same color target, which is the
// simplest chain that exercises buildChains' first-use/ordinary-edge/
// last-use triple and topoSort's single-edge path.
func linearFrame(t *testing.T, gpu driver.GPU, reg *registry.Registry) (*rgraph.Frame, registry.Handle) {
	t.Helper()
	h, v := registerImage(t, gpu, reg, true)
	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p0 := b.AddPass("producer", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p0, []rgraph.ColorTargetDesc{{View: v, Store: driver.SStore}}, []registry.Handle{h}))
	p1 := b.AddPass("consumer", driver.Graphics)
	require.NoError(t, b.DeclareAccess(p1, rgraph.AccessDescriptor{Resource: h, Kind: rgraph.ShaderRead, Stages: driver.SFragment}))
	frame, err := b.EndFrame()
	require.NoError(t, err)
	return frame, h
}

func TestCompileOrdersPassesByDependency(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	frame, _ := linearFrame(t, gpu, reg)

	cf, err := Compile(gpu, reg, frame)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, cf.Order)
}

func TestTopoSortRejectsCycle(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	h, _ := registerImage(t, gpu, reg, false)

	frame := &rgraph.Frame{
		Passes: []rgraph.Pass{
			{Name: "a", Queue: driver.Graphics, Accesses: []rgraph.AccessDescriptor{
				{Resource: h, Kind: rgraph.ShaderWrite, Stages: driver.SFragment},
			}},
			{Name: "b", Queue: driver.Graphics, Accesses: []rgraph.AccessDescriptor{
				{Resource: h, Kind: rgraph.ShaderWrite, Stages: driver.SFragment},
			}},
		},
	}
	// Manufacture a cycle directly against buildChains' output shape:
	// two writers to the same resource naturally chain a->b; force b->a
	// too by re-ordering through a synthetic link set.
	links := buildChains(frame)
	links = append(links, ChainLink{
		Resource: h, ProducerPass: 1, ConsumerPass: 0, IsDAGEdge: true,
	})
	_, err := topoSort(len(frame.Passes), links)
	assert.ErrorIs(t, err, ErrCyclicDependency)
}

func TestAssignQueuesFallsBackToGraphics(t *testing.T) {
	gpu := &fallbackGPU{GPU: newTestGPU(t)}
	frame := &rgraph.Frame{Passes: []rgraph.Pass{{Name: "copy", Queue: driver.Transfer}}}
	assigned := assignQueues(gpu, frame)
	assert.Equal(t, driver.Graphics, assigned[0])
}

// fallbackGPU hides the Transfer queue so tests can exercise
// assignQueues' documented fallback without a driver that genuinely
// lacks a dedicated transfer family.
type fallbackGPU struct{ driver.GPU }

func (g *fallbackGPU) Queue(kind driver.QueueKind) (driver.Queue, bool) {
	if kind == driver.Transfer {
		q, _ := g.GPU.Queue(driver.Graphics)
		return q, false
	}
	return g.GPU.Queue(kind)
}

func TestBuildGroupsSplitsOnCrossQueueEdge(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	h, v := registerImage(t, gpu, reg, true)

	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p0 := b.AddPass("compute-producer", driver.Compute)
	require.NoError(t, b.DeclareAccess(p0, rgraph.AccessDescriptor{Resource: h, Kind: rgraph.Storage, Storage: rgraph.WriteOnly, Stages: driver.SCompute}))
	p1 := b.AddPass("graphics-consumer", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p1, []rgraph.ColorTargetDesc{{View: v, Store: driver.SStore}}, []registry.Handle{h}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, err := Compile(gpu, reg, frame)
	require.NoError(t, err)
	require.Len(t, cf.Groups, 2)
	assert.Equal(t, driver.Compute, cf.Groups[0].Queue)
	assert.Equal(t, driver.Graphics, cf.Groups[1].Queue)
}

func TestCompileAppendsTrailingEpilogueForSwapchain(t *testing.T) {
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

	cf, err := Compile(gpu, reg, frame)
	require.NoError(t, err)
	require.GreaterOrEqual(t, cf.TrailingEpilogueIndex, 0)
	assert.Equal(t, GroupEpilogue, cf.Groups[cf.TrailingEpilogueIndex].Kind)
}

func TestComputeAliasPlanSharesNonOverlappingTransients(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	h1, v1 := registerImage(t, gpu, reg, true)
	h2, v2 := registerImage(t, gpu, reg, true)

	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p0 := b.AddPass("first", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p0, []rgraph.ColorTargetDesc{{View: v1, Store: driver.SStore}}, []registry.Handle{h1}))
	p1 := b.AddPass("second", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p1, []rgraph.ColorTargetDesc{{View: v2, Store: driver.SStore}}, []registry.Handle{h2}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, err := Compile(gpu, reg, frame)
	require.NoError(t, err)
	assert.Equal(t, cf.Alias[h1], cf.Alias[h2])
}

// TestComputeAliasPlanSeparatesUsageIncompatibleTransients: two
// transients identical in every dimension except usage flags must not
// share a memory slot, even with disjoint access intervals - the
// backend may back differently-flagged allocations with different
// memory types.
func TestComputeAliasPlanSeparatesUsageIncompatibleTransients(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	h1, v1 := registerImage(t, gpu, reg, true)
	h2, err := reg.RegisterImage(registry.ImageDesc{
		Size: driver.Dim3D{Width: 32, Height: 32, Depth: 1}, Format: driver.RGBA8Unorm,
		Samples: 1, MipLevels: 1, ArrayLayers: 1,
		Usage: driver.URenderTarget, Transient: true,
	})
	require.NoError(t, err)
	img, err := gpu.NewImage(driver.RGBA8Unorm, driver.Dim3D{Width: 32, Height: 32, Depth: 1}, 1, 1, 1, driver.UGeneric)
	require.NoError(t, err)
	v2, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	require.NoError(t, err)
	require.NoError(t, reg.BindView(h2, v2))

	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p0 := b.AddPass("first", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p0, []rgraph.ColorTargetDesc{{View: v1, Store: driver.SStore}}, []registry.Handle{h1}))
	p1 := b.AddPass("second", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p1, []rgraph.ColorTargetDesc{{View: v2, Store: driver.SStore}}, []registry.Handle{h2}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, err := Compile(gpu, reg, frame)
	require.NoError(t, err)
	assert.NotEqual(t, cf.Alias[h1], cf.Alias[h2])
}
