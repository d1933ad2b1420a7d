// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package registry implements the render graph's Resource Registry: a
// handle-indexed map from opaque 64-bit handles to Image/Buffer
// descriptors, plus the per-resource last-access state the Barrier
// Solver reads and updates across frames.
package registry

// Handle identifies a resource registered in a Registry. It packs a
// pool index in the low 32 bits and a generation counter in the high
// 32 bits, exactly the encoding internal/bitm's free list is built to
// back: a stale handle (one whose generation no longer matches the
// slot) is detected in O(1) without walking any list.
type Handle uint64

// UnknownHandle is the zero value; Registry never hands it out.
const UnknownHandle Handle = 0

func newHandle(index int, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(uint32(index)))
}

func (h Handle) index() int  { return int(uint32(h)) }
func (h Handle) gen() uint32 { return uint32(h >> 32) }
