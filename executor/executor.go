// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package executor implements the render graph's Executor: it walks a
// compiler.CompiledFrame's Pass Groups in order,
// records each pass's barriers/transitions and callback into a
// command buffer per group, and submits each group to its assigned
// Queue with the cross-queue timeline waits and swapchain acquire/
// present binary-semaphore waits/signals the barrier.Plan calls for.
package executor

import (
	goerrors "errors"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/gviegas/rhigraph/barrier"
	"github.com/gviegas/rhigraph/compiler"
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph"
)

// mapDriverErr translates backend sentinels to the executor-level
// error kinds: the backend-agnostic OutOfMemory/Timeout/DeviceLost kinds
// are wrapped with the text of whichever driver sentinel actually
// occurred, so callers can errors.Is against the executor.Err* value;
// the driver sentinel itself is not in the returned error's chain.
func mapDriverErr(err error) error {
	switch {
	case err == nil:
		return nil
	case goerrors.Is(err, driver.ErrNoDeviceMemory):
		return errors.Wrap(ErrOutOfMemory, err.Error())
	case goerrors.Is(err, driver.ErrTimeout):
		return errors.Wrap(ErrTimeout, err.Error())
	case goerrors.Is(err, driver.ErrFatal):
		return errors.Wrap(ErrDeviceLost, err.Error())
	default:
		return err
	}
}

// acquireWaitStage is the pipeline stage a swapchain acquire's binary
// semaphore is waited on at. Every swapchain-imported handle is
// written to exclusively through a ColorTarget access in this domain
// (rgraph.compatibleWithQueue restricts Present/ColorTarget accesses
// to the Graphics queue), so waiting at color-output is always
// sufficient.
const acquireWaitStage = driver.SColorOutput

// Execute submits every Pass Group in cf, in order, applying the
// barriers/transitions plan computed for cf. It returns the swapchain
// handles that were signaled for presentation (in the order
// barrier.Solve recorded them) and, per queue kind, the timeline
// value the frame's last submission on that queue will reach - the
// value Queue.Submit returned, which the root Device's frame-overlap
// throttle waits on before reusing this frame's slot. The caller (the
// root Device) is responsible for mapping each presented handle back
// to the driver.Swapchain and backbuffer index it was acquired from,
// and calling Present once the returned handles' semaphores have been
// signaled by this call.
func Execute(gpu driver.GPU, reg *registry.Registry, cf *compiler.CompiledFrame, plan *barrier.Plan) ([]registry.Handle, map[driver.QueueKind]uint64, error) {
	groupOfPass := make(map[int]int, len(cf.Frame.Passes))
	for gi, g := range cf.Groups {
		for _, pi := range g.PassIndices {
			groupOfPass[pi] = gi
		}
	}

	submitted := make(map[driver.QueueKind]uint64, 3)

	for gi, g := range cf.Groups {
		if gi == cf.TrailingEpilogueIndex {
			continue // handled after the main loop, always last
		}
		value, err := executeGroup(gpu, reg, cf, plan, g, groupOfPass, submitted)
		if err != nil {
			return nil, nil, err
		}
		submitted[g.Queue] = value
	}

	if cf.TrailingEpilogueIndex >= 0 {
		value, err := executeTrailingEpilogue(gpu, reg, plan)
		if err != nil {
			return nil, nil, err
		}
		submitted[driver.Graphics] = value
	}

	for h, s := range plan.TailStates {
		if err := reg.SetLastState(h, s); err != nil {
			return nil, nil, err
		}
	}

	log.Debug().Int("groups", len(cf.Groups)).Int("presents", len(plan.Presents)).Msg("frame executed")

	return plan.Presents, submitted, nil
}

func executeGroup(
	gpu driver.GPU,
	reg *registry.Registry,
	cf *compiler.CompiledFrame,
	plan *barrier.Plan,
	g compiler.PassGroup,
	groupOfPass map[int]int,
	submitted map[driver.QueueKind]uint64,
) (uint64, error) {
	q, _ := gpu.Queue(g.Queue)
	cb, err := q.NewCmdBuffer()
	if err != nil {
		return 0, mapDriverErr(err)
	}
	if err := cb.Begin(); err != nil {
		return 0, mapDriverErr(err)
	}

	waits := crossQueueWaits(gpu, cf, g, groupOfPass, submitted)
	waits = append(waits, acquireWaits(reg, plan, g)...)

	for _, pi := range g.PassIndices {
		if err := recordPass(reg, cf, plan, cb, pi); err != nil {
			return 0, err
		}
	}

	if err := cb.End(); err != nil {
		return 0, mapDriverErr(err)
	}
	value, err := q.Submit(cb, waits, nil)
	return value, mapDriverErr(err)
}

// crossQueueWaits collects the group's cross-queue submission sync:
// one Wait per distinct queue this group's passes have a DAG
// edge from, at the coarse SAll stage (the fine-grained stage/access
// scope is already enforced by the in-command-buffer Transition the
// barrier package placed in the consumer pass's prologue; the
// submission-level wait only needs to order queue execution, not
// narrow it further).
func crossQueueWaits(gpu driver.GPU, cf *compiler.CompiledFrame, g compiler.PassGroup, groupOfPass map[int]int, submitted map[driver.QueueKind]uint64) []driver.Wait {
	inGroup := make(map[int]bool, len(g.PassIndices))
	for _, pi := range g.PassIndices {
		inGroup[pi] = true
	}
	needed := make(map[driver.QueueKind]bool)
	for _, l := range cf.Links {
		if !l.IsDAGEdge || l.ProducerPass == compiler.NoPass() || l.ConsumerPass == compiler.NoPass() {
			continue
		}
		if !inGroup[l.ConsumerPass] {
			continue
		}
		srcQueue := cf.QueueOf[l.ProducerPass]
		if srcQueue == g.Queue {
			continue
		}
		if _, ok := groupOfPass[l.ProducerPass]; !ok {
			continue
		}
		needed[srcQueue] = true
	}
	var waits []driver.Wait
	for qk := range needed {
		value, ok := submitted[qk]
		if !ok {
			continue // producer queue has not submitted yet this frame
		}
		srcQ, ok := gpu.Queue(qk)
		if !ok {
			continue
		}
		waits = append(waits, driver.Wait{Sem: srcQ.Timeline(), Value: value, Stage: driver.SAll})
	}
	return waits
}

// acquireWaits collects one binary-semaphore Wait per swapchain
// handle any pass in g first acquires.
func acquireWaits(reg *registry.Registry, plan *barrier.Plan, g compiler.PassGroup) []driver.Wait {
	var waits []driver.Wait
	for _, pi := range g.PassIndices {
		for _, h := range plan.PerPass[pi].PrologueAcquire {
			res, err := reg.Get(h)
			if err != nil {
				continue
			}
			waits = append(waits, driver.Wait{Sem: res.Acquire, Stage: acquireWaitStage})
		}
	}
	return waits
}

// recordPass records one pass into cb:
// prologue barriers/transitions, the pass's rendering/compute/copy
// scope with its callback invoked inside, then epilogue barriers/
// transitions.
func recordPass(reg *registry.Registry, cf *compiler.CompiledFrame, plan *barrier.Plan, cb driver.CmdBuffer, pi int) error {
	pb := plan.PerPass[pi]
	if len(pb.PrologueBarriers) > 0 {
		cb.Barrier(pb.PrologueBarriers)
	}
	if len(pb.PrologueTransitions) > 0 {
		cb.Transition(pb.PrologueTransitions)
	}

	pass := &cf.Frame.Passes[pi]
	if pass.HasDebugColor {
		cb.PushDebugMarker(pass.Name, pass.DebugColor)
	}

	switch {
	case len(pass.ColorTargets) > 0 || pass.DepthTarget != nil:
		if err := recordRenderPass(reg, cb, pass); err != nil {
			return err
		}
	case cf.QueueOf[pi] == driver.Compute:
		cb.BeginWork(false)
		if pass.Callback != nil {
			pass.Callback(cb)
		}
		cb.EndWork()
	default:
		cb.BeginBlit(false)
		if pass.Callback != nil {
			pass.Callback(cb)
		}
		cb.EndBlit()
	}

	if pass.HasDebugColor {
		cb.PopDebugMarker()
	}

	if len(pb.EpilogueBarriers) > 0 {
		cb.Barrier(pb.EpilogueBarriers)
	}
	if len(pb.EpilogueTransitions) > 0 {
		cb.Transition(pb.EpilogueTransitions)
	}
	return nil
}

func recordRenderPass(reg *registry.Registry, cb driver.CmdBuffer, pass *rgraph.Pass) error {
	color := make([]driver.ColorAttachment, len(pass.ColorTargets))
	for i, t := range pass.ColorTargets {
		color[i] = driver.ColorAttachment{View: t.View, Load: t.Load, Store: t.Store, Clear: t.Clear}
	}
	var ds *driver.DSAttachment
	if pass.DepthTarget != nil {
		t := pass.DepthTarget
		ds = &driver.DSAttachment{
			View:         t.View,
			LoadDepth:    t.LoadDepth,
			StoreDepth:   t.StoreDepth,
			LoadStencil:  t.LoadStencil,
			StoreStencil: t.StoreStencil,
			ClearDepth:   t.ClearDepth,
			ClearStencil: t.ClearStencil,
		}
	}
	width, height, layers, err := renderExtent(reg, pass)
	if err != nil {
		return err
	}
	cb.BeginPass(color, ds, width, height, layers)
	if pass.Callback != nil {
		pass.Callback(cb)
	}
	cb.EndPass()
	return nil
}

// renderExtent reads the image extent of the pass's first color or
// depth/stencil target, matching targets to the AccessDescriptors
// SetColorTargets/SetDepthTarget recorded alongside them (in the same
// relative order) to resolve the backing registry.Handle.
func renderExtent(reg *registry.Registry, pass *rgraph.Pass) (width, height, layers int, err error) {
	for _, ad := range pass.Accesses {
		switch ad.Kind {
		case rgraph.ColorTarget, rgraph.DepthTarget, rgraph.StencilTarget:
			res, e := reg.Get(ad.Resource)
			if e != nil {
				return 0, 0, 0, e
			}
			return res.Image.Size.Width, res.Image.Size.Height, res.Image.ArrayLayers, nil
		}
	}
	return 0, 0, 0, errNoSurface
}

func executeTrailingEpilogue(gpu driver.GPU, reg *registry.Registry, plan *barrier.Plan) (uint64, error) {
	q, _ := gpu.Queue(driver.Graphics)
	cb, err := q.NewCmdBuffer()
	if err != nil {
		return 0, mapDriverErr(err)
	}
	if err := cb.Begin(); err != nil {
		return 0, mapDriverErr(err)
	}
	if len(plan.TrailingEpilogueTransitions) > 0 {
		cb.Transition(plan.TrailingEpilogueTransitions)
	}
	if err := cb.End(); err != nil {
		return 0, mapDriverErr(err)
	}
	signals := make([]driver.Signal, len(plan.Presents))
	for i, h := range plan.Presents {
		res, err := reg.Get(h)
		if err != nil {
			return 0, err
		}
		signals[i] = driver.Signal{Sem: res.Present, Stage: driver.SBottomOfPipe}
	}
	value, err := q.Submit(cb, nil, signals)
	return value, mapDriverErr(err)
}
