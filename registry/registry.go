// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package registry

import (
	"sync"

	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/internal/bitm"
)

// MemoryKind classifies a Buffer's backing memory.
type MemoryKind int

// Memory kinds.
const (
	MemHost MemoryKind = iota
	MemDevice
	MemShared
)

// ImageDesc describes an Image resource at registration time.
type ImageDesc struct {
	Size        driver.Dim3D
	Format      driver.PixelFmt
	Samples     int
	MipLevels   int
	ArrayLayers int
	Usage       driver.Usage
	// Transient marks the image as graph-owned for a single frame;
	// the Compiler may alias its memory with other transient
	// resources whose access intervals do not overlap.
	Transient bool
}

// BufferDesc describes a Buffer resource at registration time.
type BufferDesc struct {
	ByteSize   int64
	Usage      driver.Usage
	MemoryKind MemoryKind
	Transient  bool
}

// AccessState is the cached post-frame pipeline stage, access mask,
// image layout and queue-family index owning a resource. The Barrier
// Solver reads it as the producer side of the first edge in a frame
// and the Executor writes it back from the tail state once a frame's
// submissions are built.
type AccessState struct {
	Stage       driver.Sync
	Access      driver.Access
	Layout      driver.Layout
	QueueFamily uint32
}

func initialState() AccessState {
	return AccessState{driver.STopOfPipe, driver.ANone, driver.LUndefined, driver.QFamIgnored}
}

// Kind distinguishes the two resource shapes a handle can refer to.
type Kind int

// Resource kinds.
const (
	KindImage Kind = iota
	KindBuffer
)

// Resource is the registry's record for one handle: its description,
// last-access state and, for swapchain-imported handles, the
// acquire/present semaphore pair the Executor consults.
type Resource struct {
	Kind   Kind
	Image  ImageDesc
	Buffer BufferDesc

	last AccessState

	// View is the backing driver.ImageView for an image resource.
	// The device/allocator that owns the actual backend object
	// binds it with BindView once created, so the barrier solver
	// and executor have something concrete to transition; it is nil
	// until bound.
	View driver.ImageView

	// Swapchain-imported handles additionally carry the
	// acquire/present semaphore pair the Executor consults.
	// Their View is set directly at import time.
	Swapchain bool
	Acquire   driver.Semaphore
	Present   driver.Semaphore

	gen uint32
	// used reports whether the slot holds a registered resource;
	// find rejects handles to slots that Free has cleared.
	used bool
}

// Registry is the Resource Registry. It is safe for concurrent use
// from multiple goroutines, though the render graph itself only calls
// it from the single thread driving Builder/Compiler/Solver/Executor.
type Registry struct {
	mu  sync.Mutex
	bm  bitm.Bitm[uint64]
	res []Resource
}

// New creates an empty Registry.
func New() *Registry { return &Registry{} }

func (r *Registry) alloc() (int, error) {
	idx, ok := r.bm.Search()
	if !ok {
		r.bm.Grow(1)
		idx, ok = r.bm.Search()
		if !ok {
			return 0, ErrNoCapacity
		}
	}
	r.bm.Set(idx)
	if idx >= len(r.res) {
		r.res = append(r.res, make([]Resource, idx+1-len(r.res))...)
	}
	return idx, nil
}

// RegisterImage registers an Image resource and returns its handle.
func (r *Registry) RegisterImage(desc ImageDesc) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, err := r.alloc()
	if err != nil {
		return UnknownHandle, err
	}
	r.res[idx].gen++
	r.res[idx].used = true
	r.res[idx].Kind = KindImage
	r.res[idx].Image = desc
	r.res[idx].Buffer = BufferDesc{}
	r.res[idx].Swapchain = false
	r.res[idx].last = initialState()
	return newHandle(idx, r.res[idx].gen), nil
}

// RegisterBuffer registers a Buffer resource and returns its handle.
func (r *Registry) RegisterBuffer(desc BufferDesc) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, err := r.alloc()
	if err != nil {
		return UnknownHandle, err
	}
	r.res[idx].gen++
	r.res[idx].used = true
	r.res[idx].Kind = KindBuffer
	r.res[idx].Buffer = desc
	r.res[idx].Image = ImageDesc{}
	r.res[idx].Swapchain = false
	r.res[idx].last = initialState()
	return newHandle(idx, r.res[idx].gen), nil
}

// ImportSwapchainImage registers a handle bound to one swapchain
// backbuffer's view and acquire/present semaphore pair. The Graph
// Builder must produce exactly one Present access for the returned
// handle in the frame it was imported for.
func (r *Registry) ImportSwapchainImage(view driver.ImageView, format driver.PixelFmt, size driver.Dim3D, acquire, present driver.Semaphore) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, err := r.alloc()
	if err != nil {
		return UnknownHandle, err
	}
	r.res[idx].gen++
	r.res[idx].used = true
	r.res[idx].Kind = KindImage
	r.res[idx].Image = ImageDesc{
		Size: size, Format: format, Samples: 1, MipLevels: 1, ArrayLayers: 1,
		Usage: driver.URenderTarget,
	}
	r.res[idx].Swapchain = true
	r.res[idx].View = view
	r.res[idx].Acquire = acquire
	r.res[idx].Present = present
	r.res[idx].last = initialState()
	return newHandle(idx, r.res[idx].gen), nil
}

func (r *Registry) find(h Handle) (*Resource, error) {
	idx := h.index()
	if idx < 0 || idx >= len(r.res) || !r.res[idx].used || r.res[idx].gen != h.gen() {
		return nil, ErrUnknownHandle
	}
	return &r.res[idx], nil
}

// Get returns the Resource for h.
func (r *Registry) Get(h Handle) (*Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.find(h)
	if err != nil {
		return nil, err
	}
	cpy := *res
	return &cpy, nil
}

// LastState returns the cached post-frame access state for h.
func (r *Registry) LastState(h Handle) (AccessState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.find(h)
	if err != nil {
		return AccessState{}, err
	}
	return res.last, nil
}

// SetLastState updates the cached access state for h. The Executor
// calls this once per resource at end-of-frame, with the Barrier
// Solver's tail state for that resource's access chain.
func (r *Registry) SetLastState(h Handle, s AccessState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.find(h)
	if err != nil {
		return err
	}
	res.last = s
	return nil
}

// BindView attaches the backend driver.ImageView backing an image
// resource. The barrier solver and executor need a concrete view to
// transition and render into; the allocator that creates it calls
// this once, right after creation.
func (r *Registry) BindView(h Handle, v driver.ImageView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.find(h)
	if err != nil {
		return err
	}
	if res.Kind != KindImage {
		return errNotImage
	}
	res.View = v
	return nil
}

// Free releases h's slot for reuse. Neither the Device nor any other
// part of the render graph calls it: transient and persistent
// resources alike stay registered until their owner frees them.
// Freeing an already-stale or unknown handle is a no-op.
func (r *Registry) Free(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.find(h)
	if err != nil {
		return
	}
	res.used = false
	r.bm.Unset(h.index())
}
