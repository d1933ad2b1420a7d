// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mock

import (
	"fmt"
	"sync"
)

// Violation describes a hazard the oracle caught: a read or write that
// observed stale data because no barrier separated it from a
// preceding conflicting access.
type Violation struct {
	Resource string
	Detail   string
}

func (v Violation) Error() string { return fmt.Sprintf("%s: %s", v.Resource, v.Detail) }

// oracle tracks, per resource (an Image, ImageView or Buffer, keyed by
// identity), whether the most recent access was a write that has not
// yet been covered by a Barrier or Transition naming that resource.
// CmdBuffer.Barrier is global (it carries no resource reference,
// mirroring a Vulkan VkMemoryBarrier2), so it clears every pending
// write hazard; Transition only clears the subresource it names.
//
// The oracle does not model read-after-read (never a hazard) or
// same-queue program order beyond "the order commands were recorded
// in" - sufficient to validate the render graph's own barrier
// placement without reimplementing a full validation layer.
type oracle struct {
	mu         sync.Mutex
	pending    map[any]bool
	violations []Violation
}

func (o *oracle) init() { o.pending = make(map[any]bool) }

// Violations returns every hazard observed since the oracle was
// created or last reset. Tests call this after draining a frame's
// submissions to assert the barrier solver left nothing uncovered.
func (o *oracle) Violations() []Violation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Violation(nil), o.violations...)
}

func (o *oracle) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = make(map[any]bool)
	o.violations = o.violations[:0]
}

// access records a read or write of key. A write hazard is flagged
// when key was left dirty by a prior write that no barrier cleared.
func (o *oracle) access(key any, write bool, label string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending[key] {
		o.violations = append(o.violations, Violation{
			Resource: label,
			Detail:   "accessed without an intervening barrier after a prior write",
		})
	}
	if write {
		o.pending[key] = true
	}
}

// barrierGlobal clears every pending write hazard, modeling a
// non-resource-specific memory barrier.
func (o *oracle) barrierGlobal() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for k := range o.pending {
		delete(o.pending, k)
	}
}

// transitionResource clears the pending hazard for a single resource,
// as a Transition targets one subresource rather than all traffic.
func (o *oracle) transitionResource(key any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, key)
}
