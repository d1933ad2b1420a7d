// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package barrier

import (
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
)

// PassBarriers is the set of barriers/transitions the Executor must
// emit around one pass's recorded commands, plus the swapchain acquire
// waits, if any, that pass's submission group must include.
type PassBarriers struct {
	PrologueBarriers    []driver.Barrier
	PrologueTransitions []driver.Transition
	PrologueAcquire     []registry.Handle

	EpilogueBarriers    []driver.Barrier
	EpilogueTransitions []driver.Transition
}

// Plan is the Barrier Solver's output: per-pass barriers, the
// trailing epilogue group's swapchain present transitions, the
// swapchain handles to present (in declared order) and the resulting
// tail AccessState per resource for the caller to write back via
// registry.Registry.SetLastState.
type Plan struct {
	PerPass []PassBarriers

	TrailingEpilogueTransitions []driver.Transition

	Presents []registry.Handle

	TailStates map[registry.Handle]registry.AccessState
}

func hasWrite(a driver.Access) bool {
	const writeMask = driver.AColorWrite | driver.ADSWrite | driver.AResolveWrite |
		driver.ACopyWrite | driver.AShaderWrite | driver.AAnyWrite
	return a&writeMask != 0
}

func nontrivial(src, dst driver.Access, srcLayout, dstLayout driver.Layout, srcFam, dstFam uint32) bool {
	return hasWrite(src) || hasWrite(dst) || srcLayout != dstLayout || srcFam != dstFam
}
