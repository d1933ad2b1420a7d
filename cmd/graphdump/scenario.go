// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"fmt"

	"github.com/gviegas/rhigraph/barrier"
	"github.com/gviegas/rhigraph/compiler"
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph"

	_ "github.com/gviegas/rhigraph/driver/mock"
)

// fallbackGPU wraps a driver.GPU and reports no dedicated Compute or
// Transfer queue family, forcing the Compiler's
// fallback-to-Graphics path - the mock backend otherwise always
// advertises three dedicated families (driver/mock/driver.go's
// GPU.Queue doc comment), so exercising the fallback needs this thin
// wrapper instead.
type fallbackGPU struct {
	driver.GPU
}

func (g fallbackGPU) Queue(kind driver.QueueKind) (driver.Queue, bool) {
	q, _ := g.GPU.Queue(driver.Graphics)
	if kind == driver.Graphics {
		return q, true
	}
	return q, false
}

func openGPU(cfg *Config) (driver.GPU, error) {
	drvs := driver.Drivers()
	if len(drvs) == 0 {
		return nil, fmt.Errorf("no driver registered")
	}
	gpu, err := drvs[0].Open()
	if err != nil {
		return nil, err
	}
	if cfg.QueueFallback {
		return fallbackGPU{gpu}, nil
	}
	return gpu, nil
}

type builtImage struct {
	handle registry.Handle
	view   driver.ImageView
}

func newImage(gpu driver.GPU, reg *registry.Registry, w, h int, usage driver.Usage, transient bool) (builtImage, error) {
	rh, err := reg.RegisterImage(registry.ImageDesc{
		Size: driver.Dim3D{Width: w, Height: h, Depth: 1}, Format: driver.RGBA8Unorm,
		Samples: 1, MipLevels: 1, ArrayLayers: 1,
		Usage: usage, Transient: transient,
	})
	if err != nil {
		return builtImage{}, err
	}
	img, err := gpu.NewImage(driver.RGBA8Unorm, driver.Dim3D{Width: w, Height: h, Depth: 1}, 1, 1, 1, driver.UGeneric)
	if err != nil {
		return builtImage{}, err
	}
	v, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		return builtImage{}, err
	}
	if err := reg.BindView(rh, v); err != nil {
		return builtImage{}, err
	}
	return builtImage{handle: rh, view: v}, nil
}

// compileFrame drives the frame through Compiler and Barrier Solver the
// same way rhigraph.Device.EndFrame does, so every scenario dumps a
// realistic CompiledFrame/Plan pair.
func compileFrame(gpu driver.GPU, reg *registry.Registry, frame *rgraph.Frame) (*compiler.CompiledFrame, *barrier.Plan, error) {
	cf, err := compiler.Compile(gpu, reg, frame)
	if err != nil {
		return nil, nil, err
	}
	plan, err := barrier.Solve(gpu, reg, cf)
	if err != nil {
		return nil, nil, err
	}
	return cf, plan, nil
}

// scenarioS1: a single Graphics pass clearing an otherwise-untouched
// color target.
func scenarioS1(gpu driver.GPU, reg *registry.Registry) (*compiler.CompiledFrame, *barrier.Plan, error) {
	img, err := newImage(gpu, reg, 1280, 720, driver.URenderTarget|driver.UCopySrc, true)
	if err != nil {
		return nil, nil, err
	}
	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p := b.AddPass("clear", driver.Graphics)
	if err := b.SetColorTargets(p, []rgraph.ColorTargetDesc{{
		View: img.view, Load: driver.LClear, Store: driver.SStore, Clear: [4]float32{0, 0, 0, 1},
	}}, []registry.Handle{img.handle}); err != nil {
		return nil, nil, err
	}
	frame, err := b.EndFrame()
	if err != nil {
		return nil, nil, err
	}
	return compileFrame(gpu, reg, frame)
}

// scenarioS2: a Transfer upload into a buffer followed by a Graphics
// pass sampling it, forcing a cross-queue edge.
func scenarioS2(gpu driver.GPU, reg *registry.Registry) (*compiler.CompiledFrame, *barrier.Plan, error) {
	bh, err := reg.RegisterBuffer(registry.BufferDesc{
		ByteSize: 1024, Usage: driver.UCopyDst | driver.UShaderRead, MemoryKind: registry.MemDevice,
	})
	if err != nil {
		return nil, nil, err
	}
	b := rgraph.New(reg)
	b.BeginFrame(nil)
	up := b.AddPass("upload", driver.Transfer)
	if err := b.DeclareAccess(up, rgraph.AccessDescriptor{Resource: bh, Kind: rgraph.CopyDst, Size: rgraph.WholeRange}); err != nil {
		return nil, nil, err
	}
	sm := b.AddPass("sample", driver.Graphics)
	if err := b.DeclareAccess(sm, rgraph.AccessDescriptor{
		Resource: bh, Kind: rgraph.ShaderRead, Stages: driver.SFragment, Size: rgraph.WholeRange,
	}); err != nil {
		return nil, nil, err
	}
	frame, err := b.EndFrame()
	if err != nil {
		return nil, nil, err
	}
	return compileFrame(gpu, reg, frame)
}

// scenarioS3: a swapchain frame - acquire, compose, Present.
func scenarioS3(gpu driver.GPU, reg *registry.Registry) (*compiler.CompiledFrame, *barrier.Plan, error) {
	presenter, ok := gpu.(driver.Presenter)
	if !ok {
		return nil, nil, fmt.Errorf("gpu does not implement driver.Presenter")
	}
	sc, err := presenter.NewSwapchain(nil, 2)
	if err != nil {
		return nil, nil, err
	}
	idx, acquire, err := sc.Next()
	if err != nil {
		return nil, nil, err
	}
	view := sc.Views()[idx]
	sh, err := reg.ImportSwapchainImage(view, sc.Format(), driver.Dim3D{}, acquire, sc.PresentSemaphore(idx))
	if err != nil {
		return nil, nil, err
	}
	b := rgraph.New(reg)
	b.BeginFrame([]registry.Handle{sh})
	p := b.AddPass("compose", driver.Graphics)
	if err := b.SetColorTargets(p, []rgraph.ColorTargetDesc{{
		View: view, Load: driver.LClear, Store: driver.SStore,
	}}, []registry.Handle{sh}); err != nil {
		return nil, nil, err
	}
	if err := b.DeclareAccess(p, rgraph.AccessDescriptor{Resource: sh, Kind: rgraph.Present}); err != nil {
		return nil, nil, err
	}
	frame, err := b.EndFrame()
	if err != nil {
		return nil, nil, err
	}
	return compileFrame(gpu, reg, frame)
}

// scenarioS4: read-after-write on the same queue - a "draw" pass
// writes a color target, a "post" pass samples it in the fragment
// stage.
func scenarioS4(gpu driver.GPU, reg *registry.Registry) (*compiler.CompiledFrame, *barrier.Plan, error) {
	img, err := newImage(gpu, reg, 64, 64, driver.URenderTarget|driver.UShaderRead, true)
	if err != nil {
		return nil, nil, err
	}
	b := rgraph.New(reg)
	b.BeginFrame(nil)
	draw := b.AddPass("draw", driver.Graphics)
	if err := b.SetColorTargets(draw, []rgraph.ColorTargetDesc{{
		View: img.view, Store: driver.SStore,
	}}, []registry.Handle{img.handle}); err != nil {
		return nil, nil, err
	}
	post := b.AddPass("post", driver.Graphics)
	if err := b.DeclareAccess(post, rgraph.AccessDescriptor{
		Resource: img.handle, Kind: rgraph.ShaderRead, Stages: driver.SFragment, LayerCount: 1, LevelCount: 1,
	}); err != nil {
		return nil, nil, err
	}
	frame, err := b.EndFrame()
	if err != nil {
		return nil, nil, err
	}
	return compileFrame(gpu, reg, frame)
}

// scenarioS5 stands in for cycle rejection. A real CyclicDependency
// can only arise from pass/resource bookkeeping that contradicts
// recording order; a resource's access chain is ordered by the same
// recording sequence the topological sort falls back to, so a frame
// recorded the ordinary way through rgraph.Builder can never actually
// produce one. compiler_test.go's TestTopoSortRejectsCycle
// demonstrates the rejection path directly against a synthetic
// (producer, consumer) pair, which is the only way to construct one;
// there is nothing to compile here, so this scenario reports that
// explicitly instead of faking a frame.
func scenarioS5(driver.GPU, *registry.Registry) (*compiler.CompiledFrame, *barrier.Plan, error) {
	return nil, nil, fmt.Errorf("s5: CyclicDependency cannot be produced through ordinary Builder recording " +
		"(the access chain is ordered by recording sequence); " +
		"see compiler_test.go's TestTopoSortRejectsCycle for the synthetic-link demonstration")
}

// scenarioS6: two same-size/format transient images used in disjoint
// passes, which the alias plan must assign to the same memory slot.
func scenarioS6(gpu driver.GPU, reg *registry.Registry) (*compiler.CompiledFrame, *barrier.Plan, error) {
	t1, err := newImage(gpu, reg, 128, 128, driver.URenderTarget, true)
	if err != nil {
		return nil, nil, err
	}
	t2, err := newImage(gpu, reg, 128, 128, driver.URenderTarget, true)
	if err != nil {
		return nil, nil, err
	}
	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p1 := b.AddPass("p1", driver.Graphics)
	if err := b.SetColorTargets(p1, []rgraph.ColorTargetDesc{{View: t1.view, Store: driver.SStore}}, []registry.Handle{t1.handle}); err != nil {
		return nil, nil, err
	}
	p2 := b.AddPass("p2", driver.Graphics)
	if err := b.SetColorTargets(p2, []rgraph.ColorTargetDesc{{View: t2.view, Store: driver.SStore}}, []registry.Handle{t2.handle}); err != nil {
		return nil, nil, err
	}
	frame, err := b.EndFrame()
	if err != nil {
		return nil, nil, err
	}
	return compileFrame(gpu, reg, frame)
}

var scenarios = map[string]func(driver.GPU, *registry.Registry) (*compiler.CompiledFrame, *barrier.Plan, error){
	"s1": scenarioS1,
	"s2": scenarioS2,
	"s3": scenarioS3,
	"s4": scenarioS4,
	"s5": scenarioS5,
	"s6": scenarioS6,
}
