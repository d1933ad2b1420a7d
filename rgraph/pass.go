// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package rgraph

import "github.com/gviegas/rhigraph/driver"

// ColorTargetDesc configures one color render target of a Graphics
// pass.
type ColorTargetDesc struct {
	View  driver.ImageView
	Load  driver.LoadOp
	Store driver.StoreOp
	Clear [4]float32
}

// DepthTargetDesc configures the depth/stencil render target of a
// Graphics pass.
type DepthTargetDesc struct {
	View         driver.ImageView
	LoadDepth    driver.LoadOp
	StoreDepth   driver.StoreOp
	LoadStencil  driver.LoadOp
	StoreStencil driver.StoreOp
	ClearDepth   float32
	ClearStencil uint32
}

// Recorder is the command surface a Pass's callback records through.
// It is driver.CmdBuffer itself, so Barrier, Transition, BeginPass and
// EndPass are reachable from a callback; the Executor records the
// graph's own barriers and rendering scope around the callback, and
// nothing prevents a callback from issuing more of them.
type Recorder = driver.CmdBuffer

// PassRef identifies a pass recorded in the current frame.
type PassRef int

// Pass is a named, queue-typed unit of work recorded for one frame.
type Pass struct {
	Name  string
	Queue driver.QueueKind

	Accesses     []AccessDescriptor
	ColorTargets []ColorTargetDesc
	DepthTarget  *DepthTargetDesc

	Callback func(Recorder)

	// DebugColor is pushed as a debug marker scope around the pass
	// by the Executor when HasDebugColor is set.
	DebugColor    [3]float32
	HasDebugColor bool
}
