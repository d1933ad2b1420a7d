// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package rgraph

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
)

// Frame is the per-frame output of EndFrame: the recorded passes plus
// the swapchains declared for presentation, handed to the compiler
// package's Compile function. It carries no methods of its own - it
// is a plain record crossing a package boundary, like
// driver.GraphState.
type Frame struct {
	Passes     []Pass
	Swapchains []registry.Handle
}

// Builder records one frame's passes and accesses. It is not safe for
// concurrent use; the render graph is single-threaded per frame.
type Builder struct {
	reg *registry.Registry

	swapchains []registry.Handle
	passes     []Pass
	errs       []error
}

// New creates a Builder bound to reg. Handles declared via
// DeclareAccess/SetColorTargets/SetDepthTarget are resolved against
// reg.
func New(reg *registry.Registry) *Builder { return &Builder{reg: reg} }

// BeginFrame resets per-frame state and records the swapchains that
// must each receive exactly one Present access before EndFrame. It
// does not itself block on the queue timeline - that is the frame
// overlap wait the root Device performs before calling BeginFrame.
func (b *Builder) BeginFrame(swapchains []registry.Handle) {
	b.swapchains = append(b.swapchains[:0], swapchains...)
	b.passes = b.passes[:0]
	b.errs = b.errs[:0]
}

// AddPass records a new pass and returns a reference to it.
func (b *Builder) AddPass(name string, queue driver.QueueKind) PassRef {
	b.passes = append(b.passes, Pass{Name: name, Queue: queue})
	log.Debug().Str("pass", name).Str("queue", queue.String()).Msg("pass recorded")
	return PassRef(len(b.passes) - 1)
}

func (b *Builder) pass(ref PassRef) (*Pass, error) {
	if int(ref) < 0 || int(ref) >= len(b.passes) {
		return nil, ErrUnknownPass
	}
	return &b.passes[ref], nil
}

func (b *Builder) fail(err error) error {
	b.errs = append(b.errs, err)
	return err
}

// DeclareAccess appends an access to the pass named by ref. It fails
// with ErrInvalidAccess if the kind is incompatible with the pass's
// queue kind or the subresource/byte range exceeds the resource.
func (b *Builder) DeclareAccess(ref PassRef, ad AccessDescriptor) error {
	p, err := b.pass(ref)
	if err != nil {
		return b.fail(err)
	}
	if !compatibleWithQueue(ad.Kind, p.Queue) {
		return b.fail(errors.Wrapf(ErrInvalidAccess, "pass %q: access kind incompatible with %v queue", p.Name, p.Queue))
	}
	res, err := b.reg.Get(ad.Resource)
	if err != nil {
		return b.fail(errors.Wrapf(err, "pass %q", p.Name))
	}
	if err := usageCheck(res, ad); err != nil {
		return b.fail(errors.Wrapf(err, "pass %q", p.Name))
	}
	if err := boundsCheck(res, ad); err != nil {
		return b.fail(errors.Wrapf(err, "pass %q", p.Name))
	}
	p.Accesses = append(p.Accesses, ad)
	return nil
}

// SetColorTargets configures the pass's color render targets. Each
// target's handle is validated the same way DeclareAccess validates a
// ColorTarget access, and a matching access is recorded automatically
// so the Compiler sees a single, consistent access chain per
// resource.
func (b *Builder) SetColorTargets(ref PassRef, targets []ColorTargetDesc, handles []registry.Handle) error {
	p, err := b.pass(ref)
	if err != nil {
		return b.fail(err)
	}
	if len(targets) != len(handles) {
		return b.fail(errors.Wrap(ErrInvalidAccess, "color target/handle count mismatch"))
	}
	if p.Queue != driver.Graphics {
		return b.fail(errors.Wrapf(ErrInvalidAccess, "pass %q: color targets require a Graphics queue", p.Name))
	}
	p.ColorTargets = append(p.ColorTargets[:0], targets...)
	for i, t := range targets {
		res, err := b.reg.Get(handles[i])
		if err != nil {
			return b.fail(errors.Wrapf(err, "pass %q", p.Name))
		}
		ad := AccessDescriptor{
			Resource: handles[i], Kind: ColorTarget,
			Load: t.Load, Store: t.Store,
			LayerCount: 1, LevelCount: 1,
		}
		if err := usageCheck(res, ad); err != nil {
			return b.fail(errors.Wrapf(err, "pass %q", p.Name))
		}
		if err := boundsCheck(res, ad); err != nil {
			return b.fail(errors.Wrapf(err, "pass %q", p.Name))
		}
		p.Accesses = append(p.Accesses, ad)
	}
	return nil
}

// SetDepthTarget configures the pass's depth/stencil render target.
func (b *Builder) SetDepthTarget(ref PassRef, target DepthTargetDesc, handle registry.Handle) error {
	p, err := b.pass(ref)
	if err != nil {
		return b.fail(err)
	}
	if p.Queue != driver.Graphics {
		return b.fail(errors.Wrapf(ErrInvalidAccess, "pass %q: depth target requires a Graphics queue", p.Name))
	}
	res, err := b.reg.Get(handle)
	if err != nil {
		return b.fail(errors.Wrapf(err, "pass %q", p.Name))
	}
	ad := AccessDescriptor{
		Resource: handle, Kind: DepthTarget,
		Load: target.LoadDepth, Store: target.StoreDepth,
		LayerCount: 1, LevelCount: 1,
	}
	if err := usageCheck(res, ad); err != nil {
		return b.fail(errors.Wrapf(err, "pass %q", p.Name))
	}
	if err := boundsCheck(res, ad); err != nil {
		return b.fail(errors.Wrapf(err, "pass %q", p.Name))
	}
	t := target
	p.DepthTarget = &t
	p.Accesses = append(p.Accesses, ad)
	return nil
}

// SetCallback sets the user callback invoked with a Recorder while
// the pass's dynamic rendering scope (if any) is open.
func (b *Builder) SetCallback(ref PassRef, fn func(Recorder)) error {
	p, err := b.pass(ref)
	if err != nil {
		return b.fail(err)
	}
	p.Callback = fn
	return nil
}

// SetDebugColor tags the pass with a debug marker color the Executor
// pushes/pops around its command recording.
func (b *Builder) SetDebugColor(ref PassRef, color [3]float32) error {
	p, err := b.pass(ref)
	if err != nil {
		return b.fail(err)
	}
	p.DebugColor = color
	p.HasDebugColor = true
	return nil
}

// EndFrame validates that every declared swapchain has exactly one
// Present access and, if so, returns the recorded Frame for the
// compiler package to consume. Builder-time errors are never
// discarded silently: if any were collected, or the swapchain
// invariant is violated, EndFrame returns them combined and produces
// no Frame.
func (b *Builder) EndFrame() (*Frame, error) {
	if len(b.errs) > 0 {
		return nil, combineErrs(b.errs)
	}
	presentCount := make(map[registry.Handle]int, len(b.swapchains))
	for _, h := range b.swapchains {
		presentCount[h] = 0
	}
	for i := range b.passes {
		for _, ad := range b.passes[i].Accesses {
			if ad.Kind == Present {
				presentCount[ad.Resource]++
			}
		}
	}
	for h, n := range presentCount {
		if n != 1 {
			return nil, errors.Wrapf(ErrSwapchainMisuse, "handle %#x got %d present accesses, want 1", uint64(h), n)
		}
	}
	frame := &Frame{
		Passes:     append([]Pass(nil), b.passes...),
		Swapchains: append([]registry.Handle(nil), b.swapchains...),
	}
	return frame, nil
}

func combineErrs(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return errors.New(msg)
}

// usageCheck verifies that the resource's declared usage flags cover
// the access kind. Usage is the union of every access a resource will
// ever see; an access outside that union would reach the backend with
// memory the allocator never enabled for it.
func usageCheck(res *registry.Resource, ad AccessDescriptor) error {
	var want driver.Usage
	switch ad.Kind {
	case ShaderRead:
		want = driver.UShaderRead | driver.UShaderSample | driver.UShaderConst
	case ShaderWrite:
		want = driver.UShaderWrite
	case Storage:
		if ad.Storage == ReadOnly {
			want = driver.UShaderRead
		} else {
			want = driver.UShaderWrite
		}
	case ColorTarget, DepthTarget, StencilTarget, Resolve:
		want = driver.URenderTarget
	case CopySrc:
		want = driver.UCopySrc
	case CopyDst:
		want = driver.UCopyDst
	default:
		return nil // Present carries no usage requirement of its own
	}
	var have driver.Usage
	if res.Kind == registry.KindImage {
		have = res.Image.Usage
	} else {
		have = res.Buffer.Usage
	}
	if have&want == 0 {
		return errors.Wrap(ErrInvalidAccess, "access kind not covered by resource usage")
	}
	return nil
}

func boundsCheck(res *registry.Resource, ad AccessDescriptor) error {
	if ad.isImageKind() || res.Kind == registry.KindImage {
		if res.Kind != registry.KindImage {
			return errors.Wrap(ErrInvalidAccess, "image access kind on a buffer resource")
		}
		layers, levels := ad.LayerCount, ad.LevelCount
		if layers == 0 {
			layers = 1
		}
		if levels == 0 {
			levels = 1
		}
		if ad.LayerBase+layers > res.Image.ArrayLayers || ad.LevelBase+levels > res.Image.MipLevels {
			return errors.Wrap(ErrInvalidAccess, "subresource range exceeds image extent")
		}
		return nil
	}
	if res.Kind != registry.KindBuffer {
		return errors.Wrap(ErrInvalidAccess, "buffer access kind on an image resource")
	}
	if ad.Size == WholeRange {
		return nil
	}
	if ad.Offset+ad.Size > res.Buffer.ByteSize {
		return errors.Wrap(ErrInvalidAccess, "byte range exceeds buffer capacity")
	}
	return nil
}
