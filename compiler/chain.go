// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package compiler implements the render graph's Compiler: it turns a
// recorded rgraph.Frame into an ordered, queue-assigned, grouped plan
// (a CompiledFrame) that the barrier package derives transitions from
// and the executor package walks to submit work.
package compiler

import (
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph"
)

// noPass marks a ChainLink endpoint as absent: the resource's first
// use (no producer) or last use (no consumer) in the frame.
const noPass = -1

// NoPass reports the sentinel value ChainLink.ProducerPass/ConsumerPass
// carries when that endpoint is absent, for callers outside this
// package (the barrier package compares against it directly).
func NoPass() int { return noPass }

// ChainLink is one consecutive pair of accesses to the same resource,
// in recording order. The Barrier Solver derives a transition for
// every link; links where neither side writes and no layout/queue
// change occurs resolve to no barrier at all.
type ChainLink struct {
	Resource registry.Handle

	ProducerPass   int // noPass if this is the resource's first use
	ProducerAccess rgraph.AccessDescriptor

	ConsumerPass   int // noPass if this is the resource's last use
	ConsumerAccess rgraph.AccessDescriptor

	// IsDAGEdge is true when at least one side of the link writes,
	// i.e. this link expresses a genuine ordering dependency
	// between passes (RAW/WAW/WAR) rather than a read-after-read,
	// which the topological sort does not need to order.
	IsDAGEdge bool
}

// buildChains walks each resource's accesses in recording order and
// emits one ChainLink per
// consecutive pair, plus a leading link for the resource's first use
// and a trailing link for its last use (both needed so the Barrier
// Solver can handle swapchain acquire/present and the initial
// Undefined layout uniformly).
func buildChains(frame *rgraph.Frame) []ChainLink {
	type occurrence struct {
		passIdx int
		access  rgraph.AccessDescriptor
	}
	byResource := make(map[registry.Handle][]occurrence)
	var order []registry.Handle
	for pi := range frame.Passes {
		for _, ad := range frame.Passes[pi].Accesses {
			if _, ok := byResource[ad.Resource]; !ok {
				order = append(order, ad.Resource)
			}
			byResource[ad.Resource] = append(byResource[ad.Resource], occurrence{pi, ad})
		}
	}

	var links []ChainLink
	for _, h := range order {
		occs := byResource[h]
		// First-use link: producer absent.
		links = append(links, ChainLink{
			Resource:     h,
			ProducerPass: noPass,
			ConsumerPass: occs[0].passIdx, ConsumerAccess: occs[0].access,
			IsDAGEdge: false,
		})
		for i := 0; i+1 < len(occs); i++ {
			prev, cur := occs[i], occs[i+1]
			links = append(links, ChainLink{
				Resource:       h,
				ProducerPass:   prev.passIdx, ProducerAccess: prev.access,
				ConsumerPass:   cur.passIdx, ConsumerAccess: cur.access,
				IsDAGEdge: prev.access.Writes() || cur.access.Writes(),
			})
		}
		// Last-use link: consumer absent.
		last := occs[len(occs)-1]
		links = append(links, ChainLink{
			Resource:     h,
			ProducerPass: last.passIdx, ProducerAccess: last.access,
			ConsumerPass: noPass,
			IsDAGEdge:    false,
		})
	}
	return links
}
