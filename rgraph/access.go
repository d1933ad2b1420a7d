// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package rgraph implements the render graph's Graph Builder: the
// single-threaded, per-frame recording of passes, their declared
// accesses and swapchain present intent that the compiler package
// consumes.
package rgraph

import (
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
)

// AccessKind is the kind of use a pass makes of a resource.
type AccessKind int

// Access kinds.
const (
	ShaderRead AccessKind = iota
	ShaderWrite
	Storage
	ColorTarget
	DepthTarget
	StencilTarget
	CopySrc
	CopyDst
	Resolve
	Present
)

// StorageMode splits a Storage access into read-only, write-only and
// read-write variants, since the access mask derivation needs to know
// whether a write is exclusive.
type StorageMode int

// Storage access modes.
const (
	ReadOnly StorageMode = iota
	WriteOnly
	ReadWrite
)

// WholeRange marks a buffer AccessDescriptor's Size field as "the
// resource's entire byte range, from Offset to the end".
const WholeRange int64 = -1

// AccessDescriptor is the unit DeclareAccess appends to a pass.
type AccessDescriptor struct {
	Resource registry.Handle
	Kind     AccessKind
	Storage  StorageMode // meaningful only when Kind == Storage
	Stages   driver.Stage

	// Image subresource range. Unused for buffer accesses.
	LayerBase, LayerCount int
	LevelBase, LevelCount int
	Load                  driver.LoadOp
	Store                 driver.StoreOp

	// Buffer byte range. Unused for image accesses.
	Offset, Size int64
}

// Writes reports whether kind, combined with mode for Storage
// accesses, is in itself a write.
func (a AccessDescriptor) Writes() bool {
	switch a.Kind {
	case ShaderWrite, ColorTarget, DepthTarget, StencilTarget, CopyDst, Resolve:
		return true
	case Storage:
		return a.Storage == WriteOnly || a.Storage == ReadWrite
	default:
		return false
	}
}

// reads reports whether kind, combined with mode for Storage
// accesses, is in itself a read.
func (a AccessDescriptor) reads() bool {
	switch a.Kind {
	case ShaderRead, ColorTarget, DepthTarget, StencilTarget, CopySrc:
		return true
	case Storage:
		return a.Storage == ReadOnly || a.Storage == ReadWrite
	default:
		return false
	}
}

// isImageKind reports whether this access targets an image resource.
func (a AccessDescriptor) isImageKind() bool {
	switch a.Kind {
	case ColorTarget, DepthTarget, StencilTarget, Resolve, Present:
		return true
	default:
		return false
	}
}

// compatibleWithQueue reports whether a pass on the given queue kind
// may declare an access of the given kind (only Graphics passes may
// have render-target accesses).
func compatibleWithQueue(kind AccessKind, queue driver.QueueKind) bool {
	switch kind {
	case ColorTarget, DepthTarget, StencilTarget, Resolve, Present:
		return queue == driver.Graphics
	case ShaderRead, ShaderWrite, Storage:
		return queue == driver.Graphics || queue == driver.Compute
	case CopySrc, CopyDst:
		return true
	default:
		return false
	}
}
