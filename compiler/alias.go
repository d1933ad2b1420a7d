// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package compiler

import (
	"sort"

	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
)

// AliasPlan maps a transient resource's handle to the memory slot it
// was assigned. Non-transient resources never appear in the plan.
type AliasPlan map[registry.Handle]int

type compatKey struct {
	kind     registry.Kind
	w, h, d  int
	format   driver.PixelFmt
	samples  int
	byteSize int64
	memKind  registry.MemoryKind
	usage    driver.Usage
}

func compatKeyOf(res *registry.Resource) compatKey {
	if res.Kind == registry.KindImage {
		return compatKey{
			kind: registry.KindImage,
			w:    res.Image.Size.Width, h: res.Image.Size.Height, d: res.Image.Size.Depth,
			format: res.Image.Format, samples: res.Image.Samples,
			usage: res.Image.Usage,
		}
	}
	return compatKey{
		kind: registry.KindBuffer, byteSize: res.Buffer.ByteSize,
		memKind: res.Buffer.MemoryKind, usage: res.Buffer.Usage,
	}
}

func isTransient(res *registry.Resource) bool {
	if res.Kind == registry.KindImage {
		return res.Image.Transient
	}
	return res.Buffer.Transient
}

// computeAliasPlan computes an earliest-producer/latest-consumer
// interval (in final pass order)
// for every transient resource, then greedily assign memory slots
// such that two resources share a slot only if their intervals do
// not overlap and their allocation constraints (size, format,
// samples, memory kind, usage) are compatible. Usage matters because
// the backend may place differently-flagged allocations in different
// memory types even when every other dimension agrees.
func computeAliasPlan(reg *registry.Registry, order []int, links []ChainLink) AliasPlan {
	pos := make(map[int]int, len(order))
	for i, pi := range order {
		pos[pi] = i
	}

	type interval struct {
		h          registry.Handle
		start, end int
		res        *registry.Resource
	}
	byHandle := make(map[registry.Handle]*interval)
	for _, l := range links {
		res, err := reg.Get(l.Resource)
		if err != nil || !isTransient(res) {
			continue
		}
		iv, ok := byHandle[l.Resource]
		if !ok {
			iv = &interval{h: l.Resource, start: len(order), end: -1, res: res}
			byHandle[l.Resource] = iv
		}
		for _, pi := range [2]int{l.ProducerPass, l.ConsumerPass} {
			if pi == noPass {
				continue
			}
			if p, ok := pos[pi]; ok {
				if p < iv.start {
					iv.start = p
				}
				if p > iv.end {
					iv.end = p
				}
			}
		}
	}

	ivs := make([]*interval, 0, len(byHandle))
	for _, iv := range byHandle {
		ivs = append(ivs, iv)
	}
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].start != ivs[j].start {
			return ivs[i].start < ivs[j].start
		}
		return ivs[i].h < ivs[j].h
	})

	type slot struct {
		end  int
		desc compatKey
	}
	var slots []slot
	plan := make(AliasPlan, len(ivs))
	for _, iv := range ivs {
		key := compatKeyOf(iv.res)
		assigned := -1
		for si := range slots {
			if slots[si].end < iv.start && slots[si].desc == key {
				assigned = si
				break
			}
		}
		if assigned == -1 {
			slots = append(slots, slot{end: iv.end, desc: key})
			assigned = len(slots) - 1
		} else {
			slots[assigned].end = iv.end
		}
		plan[iv.h] = assigned
	}
	return plan
}
