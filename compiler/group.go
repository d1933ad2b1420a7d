// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package compiler

import (
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph"
)

// GroupKind distinguishes a Compiler-produced batch of user passes
// from the synthetic trailing batch that carries nothing but the
// swapchain present transitions.
type GroupKind int

// Group kinds.
const (
	GroupNormal GroupKind = iota
	GroupEpilogue
)

// PassGroup is a maximal run of passes submitted together on one
// queue in one submission, with a single set of waits and signals.
type PassGroup struct {
	Queue       driver.QueueKind
	Kind        GroupKind
	PassIndices []int // empty for a GroupEpilogue
}

// assignQueues maps each pass's declared queue kind to a concrete
// queue, falling back to Graphics when gpu reports no dedicated
// family for that kind.
func assignQueues(gpu driver.GPU, frame *rgraph.Frame) []driver.QueueKind {
	assigned := make([]driver.QueueKind, len(frame.Passes))
	for i, p := range frame.Passes {
		if _, ok := gpu.Queue(p.Queue); ok {
			assigned[i] = p.Queue
		} else {
			assigned[i] = driver.Graphics
		}
	}
	return assigned
}

type passFlags struct {
	acquireStart bool // pass contains the first use of a swapchain resource
	presentEnd   bool // pass contains a Present access
}

func computePassFlags(reg *registry.Registry, frame *rgraph.Frame, links []ChainLink) []passFlags {
	flags := make([]passFlags, len(frame.Passes))
	for _, l := range links {
		res, err := reg.Get(l.Resource)
		if err != nil || !res.Swapchain {
			continue
		}
		if l.ProducerPass == noPass && l.ConsumerPass != noPass {
			flags[l.ConsumerPass].acquireStart = true
		}
	}
	for i, p := range frame.Passes {
		for _, ad := range p.Accesses {
			if ad.Kind == rgraph.Present {
				flags[i].presentEnd = true
			}
		}
	}
	return flags
}

// buildGroups walks the topologically sorted pass list, greedily
// extending the current group while the
// queue matches and no cross-queue edge or swapchain acquire/present
// boundary separates adjacent passes.
func buildGroups(order []int, assigned []driver.QueueKind, flags []passFlags, links []ChainLink) []PassGroup {
	crossesBoundary := make(map[[2]int]bool)
	for _, l := range links {
		if !l.IsDAGEdge || l.ProducerPass == noPass || l.ConsumerPass == noPass {
			continue
		}
		if assigned[l.ProducerPass] != assigned[l.ConsumerPass] {
			crossesBoundary[[2]int{l.ProducerPass, l.ConsumerPass}] = true
		}
	}

	var groups []PassGroup
	var cur *PassGroup
	for oi, pi := range order {
		boundary := cur == nil || cur.Queue != assigned[pi] || flags[pi].acquireStart
		if oi > 0 {
			prev := order[oi-1]
			if flags[prev].presentEnd {
				boundary = true
			}
			if crossesBoundary[[2]int{prev, pi}] {
				boundary = true
			}
		}
		if boundary {
			if cur != nil {
				groups = append(groups, *cur)
			}
			cur = &PassGroup{Queue: assigned[pi], Kind: GroupNormal}
		}
		cur.PassIndices = append(cur.PassIndices, pi)
	}
	if cur != nil {
		groups = append(groups, *cur)
	}
	return groups
}
