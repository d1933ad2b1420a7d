// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/rhigraph/barrier"
	"github.com/gviegas/rhigraph/compiler"
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/driver/mock"
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph"
)

// newTestGPU opens the mock driver's singleton GPU and clears its
// hazard oracle, since driver.Driver.Open must return the same GPU
// instance across calls and tests in this package would otherwise
// observe violations left over from a previous test.
func newTestGPU(t *testing.T) driver.GPU {
	t.Helper()
	drvs := driver.Drivers()
	require.NotEmpty(t, drvs)
	gpu, err := drvs[0].Open()
	require.NoError(t, err)
	gpu.(*mock.GPU).ResetOracle()
	return gpu
}

func registerImage(t *testing.T, gpu driver.GPU, reg *registry.Registry, transient bool) (registry.Handle, driver.ImageView) {
	t.Helper()
	h, err := reg.RegisterImage(registry.ImageDesc{
		Size: driver.Dim3D{Width: 32, Height: 32, Depth: 1}, Format: driver.RGBA8Unorm,
		Samples: 1, MipLevels: 1, ArrayLayers: 1,
		Usage: driver.URenderTarget | driver.UShaderRead, Transient: transient,
	})
	require.NoError(t, err)
	img, err := gpu.NewImage(driver.RGBA8Unorm, driver.Dim3D{Width: 32, Height: 32, Depth: 1}, 1, 1, 1, driver.UGeneric)
	require.NoError(t, err)
	v, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	require.NoError(t, err)
	require.NoError(t, reg.BindView(h, v))
	return h, v
}

// compileAndSolve runs the Compiler and Barrier Solver the same way
// rhigraph.Device.EndFrame does, so executor tests start from a
// realistic CompiledFrame/Plan pair rather than hand-built ones.
func compileAndSolve(t *testing.T, gpu driver.GPU, reg *registry.Registry, frame *rgraph.Frame) (*compiler.CompiledFrame, *barrier.Plan) {
	t.Helper()
	cf, err := compiler.Compile(gpu, reg, frame)
	require.NoError(t, err)
	plan, err := barrier.Solve(gpu, reg, cf)
	require.NoError(t, err)
	return cf, plan
}

func TestExecuteRunsCallbackAndLeavesNoHazard(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	h, v := registerImage(t, gpu, reg, true)

	var called bool
	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p0 := b.AddPass("producer", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p0, []rgraph.ColorTargetDesc{{View: v, Store: driver.SStore}}, []registry.Handle{h}))
	require.NoError(t, b.SetCallback(p0, func(rgraph.Recorder) { called = true }))
	p1 := b.AddPass("consumer", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p1, []rgraph.ColorTargetDesc{{View: v, Load: driver.LLoad, Store: driver.SDontCare}}, []registry.Handle{h}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, plan := compileAndSolve(t, gpu, reg, frame)
	presented, submitted, err := Execute(gpu, reg, cf, plan)
	require.NoError(t, err)
	assert.Empty(t, presented)
	assert.True(t, called)
	assert.NotZero(t, submitted[driver.Graphics])

	// The Barrier Solver's prologue transition on the consumer must
	// have cleared the producer's pending write, so the oracle sees
	// no hazard even though p1's access is itself a tracked read.
	mgpu := gpu.(*mock.GPU)
	assert.Empty(t, mgpu.Violations())
}

func TestExecuteDetectsMissingBarrierAsHazard(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()
	h, v := registerImage(t, gpu, reg, true)

	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p0 := b.AddPass("writer", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p0, []rgraph.ColorTargetDesc{{View: v, Store: driver.SStore}}, []registry.Handle{h}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, plan := compileAndSolve(t, gpu, reg, frame)

	// Drop every barrier/transition the solver placed, to confirm the
	// mock oracle actually notices an uncovered write when the render
	// graph's own safety net is removed - this is the negative control
	// for the "completeness of barriers" property.
	for i := range plan.PerPass {
		plan.PerPass[i].PrologueBarriers = nil
		plan.PerPass[i].PrologueTransitions = nil
		plan.PerPass[i].EpilogueBarriers = nil
		plan.PerPass[i].EpilogueTransitions = nil
	}

	_, _, err = Execute(gpu, reg, cf, plan)
	require.NoError(t, err)

	// A second frame's pass that only reads the same attachment (Load,
	// no Store) is the access the mock oracle actually tracks for
	// images; with the first frame's barriers dropped, the write it
	// left pending is still dirty, so this read must be flagged.
	b2 := rgraph.New(reg)
	b2.BeginFrame(nil)
	p1 := b2.AddPass("reader", driver.Graphics)
	require.NoError(t, b2.SetColorTargets(p1, []rgraph.ColorTargetDesc{{View: v, Load: driver.LLoad, Store: driver.SDontCare}}, []registry.Handle{h}))
	frame2, err := b2.EndFrame()
	require.NoError(t, err)
	cf2, plan2 := compileAndSolve(t, gpu, reg, frame2)
	for i := range plan2.PerPass {
		plan2.PerPass[i].PrologueTransitions = nil
	}
	_, _, err = Execute(gpu, reg, cf2, plan2)
	require.NoError(t, err)

	mgpu := gpu.(*mock.GPU)
	assert.NotEmpty(t, mgpu.Violations())
}

func TestExecutePresentsSwapchainInDeclaredOrder(t *testing.T) {
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

	cf, plan := compileAndSolve(t, gpu, reg, frame)
	presented, submitted, err := Execute(gpu, reg, cf, plan)
	require.NoError(t, err)
	require.Len(t, presented, 1)
	assert.Equal(t, sh, presented[0])
	// The trailing epilogue submit must be reflected in the Graphics
	// queue's reported timeline value.
	assert.NotZero(t, submitted[driver.Graphics])
}

func TestExecuteIsIdempotentOnEmptyFrame(t *testing.T) {
	gpu := newTestGPU(t)
	reg := registry.New()

	b := rgraph.New(reg)
	b.BeginFrame(nil)
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, plan := compileAndSolve(t, gpu, reg, frame)
	presented, submitted, err := Execute(gpu, reg, cf, plan)
	require.NoError(t, err)
	assert.Empty(t, presented)
	assert.Empty(t, submitted)
}

func TestMapDriverErrWrapsKnownSentinels(t *testing.T) {
	assert.ErrorIs(t, mapDriverErr(driver.ErrNoDeviceMemory), ErrOutOfMemory)
	assert.ErrorIs(t, mapDriverErr(driver.ErrTimeout), ErrTimeout)
	assert.ErrorIs(t, mapDriverErr(driver.ErrFatal), ErrDeviceLost)
	assert.NoError(t, mapDriverErr(nil))
}
