// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package rhigraph ties the render graph's Resource Registry, Graph
// Builder, Compiler, Barrier Solver and Executor together behind a
// single per-frame API, and provides the frame-overlap throttle the
// concurrency model requires.
package rhigraph

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gviegas/rhigraph/barrier"
	"github.com/gviegas/rhigraph/compiler"
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/executor"
	"github.com/gviegas/rhigraph/internal/ctxt"
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph"
	"github.com/gviegas/rhigraph/rgraph/trace"
)

// NFrame is the number of frames the Device allows in flight at once.
const NFrame = 3

// swapchainBinding remembers which driver.Swapchain and backbuffer
// index a registry.Handle was imported from, so EndFrame can call
// Present once the Executor signals that handle's present semaphore.
// This bookkeeping lives here rather than in the registry because it
// is Device-level state, not part of the graph's own data model.
type swapchainBinding struct {
	sc    driver.Swapchain
	index int
}

// Device is the render graph's entry point: it owns the Resource
// Registry and embeds a Graph Builder, and drives the Compiler,
// Barrier Solver and Executor in EndFrame.
type Device struct {
	*rgraph.Builder

	reg *registry.Registry
	gpu driver.GPU

	bindings map[registry.Handle]swapchainBinding

	slots chan int
	// slotValue records, per frame slot and queue kind, the timeline
	// value Queue.Submit returned for that frame's last submission on
	// that queue. BeginFrame waits on these before reusing the slot;
	// Queue.TimelineValue (work already retired) must not be used
	// here, since with an asynchronous backend it lags the value this
	// frame's own submissions will reach.
	slotValue [NFrame][driver.Transfer + 1]uint64
	slot      int

	trace *trace.Exporter
}

// Option configures a Device at construction time.
type Option func(*Device)

// WithTraceExporter gates a Device on an optional rgraph/trace
// exporter: when set, every successfully solved frame
// is also forwarded to whatever grpc sink exp is dialed to, alongside
// its normal execution. Export failures are logged and never fail the
// frame - the trace stream is a debugging aid, not part of the
// contract EndFrame's caller depends on.
func WithTraceExporter(exp *trace.Exporter) Option {
	return func(d *Device) { d.trace = exp }
}

// New creates a Device bound to the process's loaded driver.GPU (see
// internal/ctxt). Every frame slot starts unused, so the first NFrame
// calls to BeginFrame never block on the queue timeline.
func New(opts ...Option) *Device {
	reg := registry.New()
	d := &Device{
		Builder:  rgraph.New(reg),
		reg:      reg,
		gpu:      ctxt.GPU(),
		bindings: make(map[registry.Handle]swapchainBinding),
		slots:    make(chan int, NFrame),
	}
	for i := 0; i < NFrame; i++ {
		d.slots <- i
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the Device's Resource Registry, for registering or
// importing resources ahead of a frame.
func (d *Device) Registry() *registry.Registry { return d.reg }

// GPU returns the underlying driver.GPU.
func (d *Device) GPU() driver.GPU { return d.gpu }

// AcquireSwapchainImage acquires the next writable backbuffer from sc
// and imports it into the Registry as a handle the current frame's
// Builder calls may reference. The caller must include the returned
// handle in the slice passed to BeginFrame and declare exactly one
// Present access on it before EndFrame.
func (d *Device) AcquireSwapchainImage(sc driver.Swapchain) (registry.Handle, error) {
	idx, acquire, err := sc.Next()
	if err != nil {
		return registry.UnknownHandle, err
	}
	views := sc.Views()
	view := views[idx]
	present := sc.PresentSemaphore(idx)

	size := driver.Dim3D{} // the backing Image's extent is not reachable through ImageView; callers size passes by their own surface dims if needed
	h, err := d.reg.ImportSwapchainImage(view, sc.Format(), size, acquire, present)
	if err != nil {
		return registry.UnknownHandle, err
	}
	d.bindings[h] = swapchainBinding{sc: sc, index: idx}
	return h, nil
}

// BeginFrame is the frame-overlap suspension point:
// it blocks until a frame slot is free, waits (bounded by ctx) for
// every queue the slot's previous frame submitted to to reach that
// frame's recorded timeline value, then resets the Builder's
// per-frame state.
func (d *Device) BeginFrame(ctx context.Context, swapchains []registry.Handle) error {
	select {
	case d.slot = <-d.slots:
	case <-ctx.Done():
		return executor.ErrTimeout
	}
	for kind, v := range d.slotValue[d.slot] {
		if v == 0 {
			continue
		}
		q, _ := d.gpu.Queue(driver.QueueKind(kind))
		if err := q.Wait(ctx, v); err != nil {
			d.slots <- d.slot
			return executor.ErrTimeout
		}
	}
	d.Builder.BeginFrame(swapchains)
	return nil
}

// EndFrame compiles the recorded Frame, solves its barriers, executes
// every Pass Group, and presents every bound swapchain in declared
// order. Builder-time errors surface from EndFrame's call into the
// Builder before anything is submitted.
func (d *Device) EndFrame() error {
	frame, err := d.Builder.EndFrame()
	if err != nil {
		d.slots <- d.slot
		return err
	}

	cf, err := compiler.Compile(d.gpu, d.reg, frame)
	if err != nil {
		d.slots <- d.slot
		return err
	}

	plan, err := barrier.Solve(d.gpu, d.reg, cf)
	if err != nil {
		d.slots <- d.slot
		return err
	}

	if d.trace != nil {
		if err := d.trace.Send(context.Background(), cf, plan); err != nil {
			log.Warn().Err(err).Msg("trace export failed")
		}
	}

	presented, submitted, err := executor.Execute(d.gpu, d.reg, cf, plan)
	if err != nil {
		d.slots <- d.slot
		return err
	}

	for _, h := range presented {
		b, ok := d.bindings[h]
		if !ok {
			continue // imported outside AcquireSwapchainImage; caller presents it itself
		}
		res, err := d.reg.Get(h)
		if err != nil {
			continue
		}
		if err := b.sc.Present(b.index, res.Present); err != nil {
			log.Error().Err(err).Msg("present failed")
		}
		delete(d.bindings, h)
	}

	d.slotValue[d.slot] = [driver.Transfer + 1]uint64{}
	for kind, v := range submitted {
		d.slotValue[d.slot][kind] = v
	}
	d.slots <- d.slot

	log.Debug().
		Int("passes", len(frame.Passes)).
		Int("presented", len(presented)).
		Msg("frame ended")
	return nil
}
