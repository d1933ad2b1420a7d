// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package mock implements an in-memory driver.Driver for exercising the
// render graph's compiler, barrier solver and executor without a real
// GPU. It never touches actual device memory or command queues; Submit
// executes synchronously and replays the recorded commands against an
// internal hazard oracle (see oracle.go) that records a violation
// whenever a resource is accessed after a write that no intervening
// barrier or transition covered - the same completeness property a
// validation layer would enforce for a real backend. Image layouts are
// not tracked.
package mock

import (
	"sync"

	"github.com/gviegas/rhigraph/driver"
)

func init() { driver.Register(&mockDriver{}) }

type mockDriver struct {
	mu   sync.Mutex
	gpu  *GPU
	open bool
}

// Name implements driver.Driver.
func (d *mockDriver) Name() string { return "mock" }

// Open implements driver.Driver.
func (d *mockDriver) Open() (driver.GPU, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		d.gpu = newGPU(d)
		d.open = true
	}
	return d.gpu, nil
}

// Close implements driver.Driver.
func (d *mockDriver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.gpu = nil
}

// GPU is the in-memory driver.GPU implementation.
type GPU struct {
	drv *mockDriver

	mu     sync.Mutex
	queues [3]*Queue

	oracle oracle
}

func newGPU(drv *mockDriver) *GPU {
	g := &GPU{drv: drv}
	g.oracle.init()
	for k := driver.Graphics; k <= driver.Transfer; k++ {
		g.queues[k] = newQueue(g, k, uint32(k))
	}
	return g
}

// Driver implements driver.GPU.
func (g *GPU) Driver() driver.Driver { return g.drv }

// Violations returns every hazard the hazard oracle has observed so
// far. Tests call this after draining a frame's submissions to assert
// the barrier solver left nothing uncovered.
func (g *GPU) Violations() []Violation { return g.oracle.Violations() }

// ResetOracle clears every hazard observed so far, letting a test
// drive several frames through the same GPU and assert on each one
// independently.
func (g *GPU) ResetOracle() { g.oracle.reset() }

// Queue implements driver.GPU. The mock exposes three dedicated
// families, one per driver.QueueKind, so ok is always true; callers
// exercising the Compiler's fallback path should use a GPU wrapper
// that hides a family instead of relying on this one to fail.
func (g *GPU) Queue(kind driver.QueueKind) (driver.Queue, bool) {
	if kind < driver.Graphics || kind > driver.Transfer {
		return g.queues[driver.Graphics], false
	}
	return g.queues[kind], true
}

// NewShaderCode implements driver.GPU.
func (g *GPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	cpy := make([]byte, len(data))
	copy(cpy, data)
	return &shaderCode{data: cpy}, nil
}

// NewDescHeap implements driver.GPU.
func (g *GPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	cpy := make([]driver.Descriptor, len(ds))
	copy(cpy, ds)
	return &descHeap{descs: cpy}, nil
}

// NewDescTable implements driver.GPU.
func (g *GPU) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) {
	return &descTable{heaps: append([]driver.DescHeap(nil), dh...)}, nil
}

// NewPipeline implements driver.GPU.
func (g *GPU) NewPipeline(state any) (driver.Pipeline, error) {
	switch state.(type) {
	case *driver.GraphState, *driver.CompState:
		return &pipeline{state: state}, nil
	default:
		return nil, driver.ErrFatal
	}
}

// NewBuffer implements driver.GPU.
func (g *GPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	b := &buffer{size: size, visible: visible, usage: usg}
	if visible {
		b.data = make([]byte, size)
	}
	return b, nil
}

// NewImage implements driver.GPU.
func (g *GPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	return &image{
		gpu: g, pixFmt: pf, size: size,
		layers: layers, levels: levels, samples: samples,
		usage: usg,
	}, nil
}

// NewSampler implements driver.GPU.
func (g *GPU) NewSampler(spln *driver.Sampling) (driver.Sampler, error) {
	s := *spln
	return &sampler{spln: s}, nil
}

// Limits implements driver.GPU. Values are generous so that tests
// exercising the Resource Registry and Compiler are not tripped up by
// implementation limits unrelated to what they are checking.
func (g *GPU) Limits() driver.Limits {
	return driver.Limits{
		MaxImage1D:        16384,
		MaxImage2D:        16384,
		MaxImageCube:      16384,
		MaxImage3D:        2048,
		MaxLayers:         2048,
		MaxDescHeaps:      32,
		MaxDBuffer:        1 << 20,
		MaxDImage:         1 << 20,
		MaxDConstant:      1 << 16,
		MaxDTexture:       1 << 20,
		MaxDSampler:       4096,
		MaxDBufferRange:   1 << 30,
		MaxDConstantRange: 1 << 16,
		MaxColorTargets:   8,
		MaxFBSize:         [2]int{16384, 16384},
		MaxFBLayers:       2048,
		MaxPointSize:      256,
		MaxViewports:      16,
		MaxVertexIn:       32,
		MaxFragmentIn:     32,
		MaxDispatch:       [3]int{65535, 65535, 65535},
	}
}
