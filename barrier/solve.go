// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package barrier

import (
	"sort"

	"github.com/gviegas/rhigraph/compiler"
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph"
)

// Solve derives a concrete barrier (or transition, for images) for
// every link the compiler package produced and places it in the right
// pass's prologue/epilogue - or, for the swapchain present transition,
// in the trailing epilogue group.
func Solve(gpu driver.GPU, reg *registry.Registry, cf *compiler.CompiledFrame) (*Plan, error) {
	family := make(map[driver.QueueKind]uint32, 3)
	for k := driver.Graphics; k <= driver.Transfer; k++ {
		if q, ok := gpu.Queue(k); ok {
			family[k] = q.FamilyIndex()
		}
	}
	familyOf := func(passIdx int) uint32 { return family[cf.QueueOf[passIdx]] }

	plan := &Plan{
		PerPass:    make([]PassBarriers, len(cf.Frame.Passes)),
		TailStates: make(map[registry.Handle]registry.AccessState),
	}

	for _, l := range cf.Links {
		res, err := reg.Get(l.Resource)
		if err != nil {
			return nil, err
		}
		isImage := res.Kind == registry.KindImage

		// First use of a swapchain-imported resource: the consumer's
		// prologue waits on the acquire semaphore and transitions
		// from Undefined.
		if l.ProducerPass == compiler.NoPass() && res.Swapchain {
			dstSync, dstAccess := derive(l.ConsumerAccess)
			dstLayout := driver.LUndefined
			if isImage {
				dstLayout = imageLayout(l.ConsumerAccess)
			}
			dstFamily := familyOf(l.ConsumerPass)
			pb := &plan.PerPass[l.ConsumerPass]
			pb.PrologueTransitions = append(pb.PrologueTransitions, driver.Transition{
				Barrier: driver.Barrier{
					SyncBefore: driver.STopOfPipe, SyncAfter: dstSync,
					AccessBefore: driver.ANone, AccessAfter: dstAccess,
				},
				LayoutBefore: driver.LUndefined, LayoutAfter: dstLayout,
				IView:      res.View,
				QFamBefore: driver.QFamIgnored, QFamAfter: dstFamily,
			})
			pb.PrologueAcquire = append(pb.PrologueAcquire, l.Resource)
		}

		// The access that marks a resource Present: the present
		// transition and present-semaphore signal go in the trailing
		// epilogue group, not this pass's own epilogue.
		if l.ConsumerAccess.Kind == rgraph.Present && res.Swapchain {
			var srcSync driver.Sync
			var srcAccess driver.Access
			var srcLayout driver.Layout
			var srcFamily uint32
			if l.ProducerPass == compiler.NoPass() {
				srcSync, srcAccess, srcLayout, srcFamily = driver.STopOfPipe, driver.ANone, driver.LUndefined, driver.QFamIgnored
			} else {
				srcSync, srcAccess = derive(l.ProducerAccess)
				srcLayout = imageLayout(l.ProducerAccess)
				srcFamily = familyOf(l.ProducerPass)
			}
			plan.TrailingEpilogueTransitions = append(plan.TrailingEpilogueTransitions, driver.Transition{
				Barrier: driver.Barrier{
					SyncBefore: srcSync, SyncAfter: driver.SBottomOfPipe,
					AccessBefore: srcAccess, AccessAfter: driver.ANone,
				},
				LayoutBefore: srcLayout, LayoutAfter: driver.LPresent,
				IView:      res.View,
				QFamBefore: srcFamily, QFamAfter: srcFamily,
			})
			plan.Presents = append(plan.Presents, l.Resource)
			continue
		}
		if l.ProducerPass == compiler.NoPass() && res.Swapchain {
			continue
		}

		// True last use: no further consumer this frame. Just
		// record the tail state; no barrier is needed since nothing
		// reads it again before SetLastState.
		if l.ConsumerPass == compiler.NoPass() {
			sync, access := derive(l.ProducerAccess)
			layout := driver.LUndefined
			if isImage {
				layout = imageLayout(l.ProducerAccess)
			}
			plan.TailStates[l.Resource] = registry.AccessState{
				Stage: sync, Access: access, Layout: layout, QueueFamily: familyOf(l.ProducerPass),
			}
			continue
		}

		// First use, non-swapchain: the producer side is either the
		// resource's cross-frame last_state, or Undefined if it is
		// transient (freshly aliased memory this frame).
		if l.ProducerPass == compiler.NoPass() {
			var src registry.AccessState
			if isImage && res.Image.Transient || !isImage && res.Buffer.Transient {
				src = registry.AccessState{Stage: driver.STopOfPipe, Access: driver.ANone, Layout: driver.LUndefined, QueueFamily: driver.QFamIgnored}
			} else {
				src, err = reg.LastState(l.Resource)
				if err != nil {
					return nil, err
				}
			}
			dstSync, dstAccess := derive(l.ConsumerAccess)
			dstLayout := driver.LUndefined
			if isImage {
				dstLayout = imageLayout(l.ConsumerAccess)
			}
			dstFamily := familyOf(l.ConsumerPass)
			if !nontrivial(src.Access, dstAccess, src.Layout, dstLayout, src.QueueFamily, dstFamily) {
				continue
			}
			pb := &plan.PerPass[l.ConsumerPass]
			if isImage {
				pb.PrologueTransitions = append(pb.PrologueTransitions, driver.Transition{
					Barrier: driver.Barrier{
						SyncBefore: src.Stage, SyncAfter: dstSync,
						AccessBefore: src.Access, AccessAfter: dstAccess,
					},
					LayoutBefore: src.Layout, LayoutAfter: dstLayout,
					IView:      res.View,
					QFamBefore: src.QueueFamily, QFamAfter: dstFamily,
				})
			} else {
				pb.PrologueBarriers = append(pb.PrologueBarriers, driver.Barrier{
					SyncBefore: src.Stage, SyncAfter: dstSync,
					AccessBefore: src.Access, AccessAfter: dstAccess,
				})
			}
			continue
		}

		// Ordinary pass-to-pass edge.
		srcSync, srcAccess := derive(l.ProducerAccess)
		dstSync, dstAccess := derive(l.ConsumerAccess)
		srcLayout, dstLayout := driver.LUndefined, driver.LUndefined
		if isImage {
			srcLayout = imageLayout(l.ProducerAccess)
			dstLayout = imageLayout(l.ConsumerAccess)
		}
		srcFamily, dstFamily := familyOf(l.ProducerPass), familyOf(l.ConsumerPass)
		if !nontrivial(srcAccess, dstAccess, srcLayout, dstLayout, srcFamily, dstFamily) {
			continue
		}
		if srcFamily != dstFamily && isImage {
			// Two-half ownership transfer: release in the
			// producer's epilogue, acquire in the consumer's
			// prologue.
			prod := &plan.PerPass[l.ProducerPass]
			prod.EpilogueTransitions = append(prod.EpilogueTransitions, driver.Transition{
				Barrier: driver.Barrier{
					SyncBefore: srcSync, SyncAfter: driver.SNone,
					AccessBefore: srcAccess, AccessAfter: driver.ANone,
				},
				LayoutBefore: srcLayout, LayoutAfter: dstLayout,
				IView:      res.View,
				QFamBefore: srcFamily, QFamAfter: dstFamily,
			})
			cons := &plan.PerPass[l.ConsumerPass]
			cons.PrologueTransitions = append(cons.PrologueTransitions, driver.Transition{
				Barrier: driver.Barrier{
					SyncBefore: driver.SNone, SyncAfter: dstSync,
					AccessBefore: driver.ANone, AccessAfter: dstAccess,
				},
				LayoutBefore: srcLayout, LayoutAfter: dstLayout,
				IView:      res.View,
				QFamBefore: srcFamily, QFamAfter: dstFamily,
			})
			continue
		}
		cons := &plan.PerPass[l.ConsumerPass]
		if isImage {
			cons.PrologueTransitions = append(cons.PrologueTransitions, driver.Transition{
				Barrier: driver.Barrier{
					SyncBefore: srcSync, SyncAfter: dstSync,
					AccessBefore: srcAccess, AccessAfter: dstAccess,
				},
				LayoutBefore: srcLayout, LayoutAfter: dstLayout,
				IView:      res.View,
				QFamBefore: srcFamily, QFamAfter: dstFamily,
			})
		} else {
			cons.PrologueBarriers = append(cons.PrologueBarriers, driver.Barrier{
				SyncBefore: srcSync, SyncAfter: dstSync,
				AccessBefore: srcAccess, AccessAfter: dstAccess,
			})
		}
	}

	// Present in the order the swapchains were passed to BeginFrame.
	declared := make(map[registry.Handle]int, len(cf.Frame.Swapchains))
	for i, h := range cf.Frame.Swapchains {
		declared[h] = i
	}
	sort.SliceStable(plan.Presents, func(i, j int) bool {
		pi, iok := declared[plan.Presents[i]]
		pj, jok := declared[plan.Presents[j]]
		if iok != jok {
			return iok
		}
		return pi < pj
	})

	if err := collapse(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// collapse merges barriers targeting the same image view in the same
// slot by
// OR-ing their stage/access masks. Buffer barriers carry no resource
// reference (they mirror a global VkMemoryBarrier2), so they are left
// as recorded - merging them is valid regardless of target and the
// Executor already issues them as a single Barrier call per slot.
func collapse(plan *Plan) error {
	for i := range plan.PerPass {
		t, err := mergeTransitions(plan.PerPass[i].PrologueTransitions)
		if err != nil {
			return err
		}
		plan.PerPass[i].PrologueTransitions = t
		t, err = mergeTransitions(plan.PerPass[i].EpilogueTransitions)
		if err != nil {
			return err
		}
		plan.PerPass[i].EpilogueTransitions = t
	}
	t, err := mergeTransitions(plan.TrailingEpilogueTransitions)
	if err != nil {
		return err
	}
	plan.TrailingEpilogueTransitions = t
	return nil
}

func mergeTransitions(ts []driver.Transition) ([]driver.Transition, error) {
	if len(ts) < 2 {
		return ts, nil
	}
	idx := make(map[driver.ImageView]int, len(ts))
	out := ts[:0:0]
	for _, t := range ts {
		if i, ok := idx[t.IView]; ok {
			if out[i].LayoutBefore != t.LayoutBefore || out[i].LayoutAfter != t.LayoutAfter {
				return nil, errLayoutMismatch
			}
			out[i].SyncBefore |= t.SyncBefore
			out[i].SyncAfter |= t.SyncAfter
			out[i].AccessBefore |= t.AccessBefore
			out[i].AccessAfter |= t.AccessAfter
			continue
		}
		idx[t.IView] = len(out)
		out = append(out, t)
	}
	return out, nil
}
