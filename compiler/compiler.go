// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package compiler

import (
	"github.com/rs/zerolog/log"

	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph"
)

// CompiledFrame is the Compiler's output: an ordered list of Pass
// Groups, the full per-resource access chain the barrier
// package derives transitions from, and the alias plan for transient
// resources.
type CompiledFrame struct {
	Frame *rgraph.Frame

	// Order is the pass index order produced by the topological
	// sort, before grouping.
	Order []int

	// QueueOf is indexed by pass index; it is the concrete queue
	// each pass was assigned to (after the Graphics fallback).
	QueueOf []driver.QueueKind

	Groups []PassGroup

	// TrailingEpilogueIndex is the index into Groups of the
	// synthetic trailing GroupEpilogue batch that carries only the
	// swapchain present transitions, or -1 if the frame presents
	// nothing.
	TrailingEpilogueIndex int

	Links []ChainLink

	Alias AliasPlan
}

// Compile turns a recorded frame into a CompiledFrame: dependency
// graph, topological sort, queue assignment, grouping, and
// transient-resource aliasing. gpu is consulted only for queue-family
// fallback; reg resolves handles for swapchain/transient
// classification.
func Compile(gpu driver.GPU, reg *registry.Registry, frame *rgraph.Frame) (*CompiledFrame, error) {
	links := buildChains(frame)

	order, err := topoSort(len(frame.Passes), links)
	if err != nil {
		return nil, err
	}

	assigned := assignQueues(gpu, frame)
	flags := computePassFlags(reg, frame, links)
	groups := buildGroups(order, assigned, flags, links)

	trailing := -1
	if len(frame.Swapchains) > 0 {
		groups = append(groups, PassGroup{Queue: driver.Graphics, Kind: GroupEpilogue})
		trailing = len(groups) - 1
	}

	alias := computeAliasPlan(reg, order, links)

	log.Debug().
		Int("passes", len(frame.Passes)).
		Int("groups", len(groups)).
		Int("aliased", len(alias)).
		Msg("frame compiled")

	return &CompiledFrame{
		Frame: frame, Order: order, QueueOf: assigned,
		Groups: groups, TrailingEpilogueIndex: trailing,
		Links: links, Alias: alias,
	}, nil
}
