// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import "context"

// GPU is the main interface to an underlying driver implementation.
// It is used to create resources, descriptor/pipeline objects, and to
// obtain the Queues used for command recording and submission.
// A GPU is obtained from a call to Driver.Open.
type GPU interface {
	// Driver returns the Driver that owns the GPU.
	Driver() Driver

	// Queue returns the Queue backing the given QueueKind.
	// ok reports whether the device exposes a family dedicated to
	// kind; when false, the returned Queue is the device's Graphics
	// queue and callers (the render graph's Compiler) must fall
	// back to submitting that kind of work on it.
	Queue(kind QueueKind) (q Queue, ok bool)

	// NewShaderCode creates a new shader code.
	NewShaderCode(data []byte) (ShaderCode, error)

	// NewDescHeap creates a new descriptor heap.
	NewDescHeap(ds []Descriptor) (DescHeap, error)

	// NewDescTable creates a new descriptor table.
	NewDescTable(dh []DescHeap) (DescTable, error)

	// NewPipeline creates a new pipeline.
	// The state parameter must be a pointer to a GraphState or
	// a pointer to a CompState.
	NewPipeline(state any) (Pipeline, error)

	// NewBuffer creates a new buffer.
	NewBuffer(size int64, visible bool, usg Usage) (Buffer, error)

	// NewImage creates a new image.
	NewImage(pf PixelFmt, size Dim3D, layers, levels, samples int, usg Usage) (Image, error)

	// NewSampler creates a new Sampler.
	NewSampler(spln *Sampling) (Sampler, error)

	// Limits returns the implementation limits.
	// They are immutable for the lifetime of the GPU.
	Limits() Limits
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external
// memory that is not managed by GC, so Destroy must be
// called explicitly to ensure such memory is deallocated.
type Destroyer interface {
	Destroy()
}

// QueueKind identifies the kind of work a Queue accepts.
// The render graph's Compiler maps each Pass's declared queue kind to
// a concrete Queue via GPU.Queue, falling back to Graphics when the
// device reports no dedicated family for the requested kind.
type QueueKind int

// Queue kinds.
const (
	Graphics QueueKind = iota
	Compute
	Transfer
)

// String returns a human-readable name, used in debug markers and logs.
func (k QueueKind) String() string {
	switch k {
	case Graphics:
		return "graphics"
	case Compute:
		return "compute"
	case Transfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Semaphore is the interface that defines a GPU-side synchronization
// primitive. A Queue's own semaphore is a timeline (monotonically
// increasing counter); Swapchain acquire/present semaphores are binary.
type Semaphore interface {
	Destroyer

	// Binary reports whether this is a binary (as opposed to
	// timeline) semaphore.
	Binary() bool
}

// Wait describes a single wait operation in a submission.
// For a timeline wait (cross-queue edge), Value is the timeline value
// that Sem must reach. For a binary wait (swapchain acquire), Value is
// ignored.
type Wait struct {
	Sem   Semaphore
	Value uint64
	Stage Sync
}

// Signal describes a single signal operation in a submission.
// Value is ignored for binary semaphores (swapchain present).
type Signal struct {
	Sem   Semaphore
	Value uint64
	Stage Sync
}

// Queue is the interface that defines a single hardware queue.
// Command buffers are created from a Queue and submitted back to it;
// the Queue owns a timeline Semaphore that Submit advances.
type Queue interface {
	// Kind returns the kind of work this Queue accepts.
	Kind() QueueKind

	// FamilyIndex returns the backend queue-family index.
	// Barriers that transfer a resource's queue-family ownership
	// (driver.Transition) use this value.
	FamilyIndex() uint32

	// Timeline returns the Queue's timeline Semaphore.
	Timeline() Semaphore

	// TimelineValue returns the highest timeline value that has
	// completed execution so far.
	TimelineValue() uint64

	// NewCmdBuffer creates a new command buffer for this Queue.
	NewCmdBuffer() (CmdBuffer, error)

	// Submit submits cb for execution, after waiting on every Wait
	// in waits and before signaling every Signal in signals.
	// It returns the new timeline value that the Queue's own
	// timeline Semaphore will reach upon completion (in addition to
	// any explicit Signal entries targeting other semaphores).
	// cb cannot be reused for recording until execution completes.
	Submit(cb CmdBuffer, waits []Wait, signals []Signal) (value uint64, err error)

	// Wait blocks until the Queue's timeline reaches value, ctx is
	// done, or the Queue enters a fatal state. A context deadline
	// exceeded (or cancellation) is reported as ErrTimeout.
	Wait(ctx context.Context, value uint64) error
}

// CmdBuffer is the interface that defines a command buffer.
// Commands are recorded into command buffers and later submitted to a
// Queue for execution. Recording is separated into logical blocks
// containing either rendering, compute or copy commands. Multiple
// logical blocks can be recorded into a single command buffer.
//
// To record commands for a render pass (dynamic rendering - no
// precompiled RenderPass/Framebuf object is required; the color and
// depth/stencil attachments, with their load/store ops and clear
// values, are supplied directly to BeginPass, mirroring VK_KHR_dynamic_rendering
// and WebGPU's RenderPassDescriptor):
//  1. call BeginPass
//  2. call Set* methods to configure rendering state
//  3. call Draw* commands
//  4. call EndPass
//
// To record compute commands:
//  1. call BeginWork
//  2. call Set* methods to configure compute state
//  3. call Dispatch commands
//  4. call EndWork
//
// To record copy commands:
//  1. call BeginBlit
//  2. call Copy*/Fill commands
//  3. call EndBlit
//
// Finally, call End and, if it succeeds, Queue.Submit.
// Begin* commands must not be nested, and must always be ended
// before another call to Begin* and prior to the final End call.
type CmdBuffer interface {
	Destroyer

	// Begin prepares the command buffer for recording.
	Begin() error

	// BeginPass begins a dynamic rendering scope over the given
	// color targets and optional depth/stencil target.
	// Draw commands issued before EndPass execute within this scope.
	BeginPass(color []ColorAttachment, ds *DSAttachment, width, height, layers int)

	// EndPass ends the current rendering scope.
	EndPass()

	// BeginWork begins compute work.
	// If wait is set, compute work only starts when all previous
	// commands recorded in the same command buffer are done executing.
	BeginWork(wait bool)

	// EndWork ends the current compute work.
	EndWork()

	// BeginBlit begins data transfer.
	// If wait is set, data transfer only starts when all previous
	// commands recorded in the same command buffer are done executing.
	BeginBlit(wait bool)

	// EndBlit ends the current data transfer.
	EndBlit()

	// BeginConditional begins conditional rendering, predicated on
	// the value stored at the given offset in buf being non-zero.
	// NOTE: nothing in the render graph drives this path today; kept
	// so a future consumer does not need a driver change to use it.
	BeginConditional(buf Buffer, off int64)

	// EndConditional ends conditional rendering.
	EndConditional()

	// SetPipeline sets the pipeline.
	// There is a separate binding point for each type of pipeline.
	SetPipeline(pl Pipeline)

	// SetViewport sets the bounds of one or more viewports.
	SetViewport(vp []Viewport)

	// SetScissor sets the rectangles of one or more viewport scissors.
	SetScissor(sciss []Scissor)

	// SetBlendColor sets the constant blend color.
	SetBlendColor(r, g, b, a float32)

	// SetStencilRef sets the stencil reference value.
	SetStencilRef(value uint32)

	// SetVertexBuf sets one or more vertex buffers.
	SetVertexBuf(start int, buf []Buffer, off []int64)

	// SetIndexBuf sets the index buffer.
	SetIndexBuf(format IndexFmt, buf Buffer, off int64)

	// SetDescTableGraph sets a descriptor table range for graphics
	// pipelines.
	SetDescTableGraph(table DescTable, start int, heapCopy []int)

	// SetDescTableComp sets a descriptor table range for compute
	// pipelines.
	SetDescTableComp(table DescTable, start int, heapCopy []int)

	// Draw draws primitives.
	Draw(vertCount, instCount, baseVert, baseInst int)

	// DrawIndexed draws indexed primitives.
	DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int)

	// DrawIndirect draws primitives using parameters read from buf.
	DrawIndirect(buf Buffer, off int64, drawCount int, stride int64)

	// DrawIndexedIndirect draws indexed primitives using parameters
	// read from buf.
	DrawIndexedIndirect(buf Buffer, off int64, drawCount int, stride int64)

	// Dispatch dispatches compute thread groups.
	Dispatch(grpCountX, grpCountY, grpCountZ int)

	// DispatchIndirect dispatches compute thread groups using
	// parameters read from buf.
	DispatchIndirect(buf Buffer, off int64)

	// CopyBuffer copies data between buffers.
	CopyBuffer(param *BufferCopy)

	// CopyImage copies data between images.
	CopyImage(param *ImageCopy)

	// CopyBufToImg copies data from a buffer to an image.
	CopyBufToImg(param *BufImgCopy)

	// CopyImgToBuf copies data from an image to a buffer.
	CopyImgToBuf(param *BufImgCopy)

	// Fill fills a buffer range with copies of a byte value.
	Fill(buf Buffer, off int64, value byte, size int64)

	// Barrier inserts a number of global/buffer barriers in the
	// command buffer.
	Barrier(b []Barrier)

	// Transition inserts a number of image layout transitions
	// (including queue-family ownership transfers) in the command
	// buffer.
	Transition(t []Transition)

	// PushDebugMarker pushes a named, colored debug marker scope.
	PushDebugMarker(name string, color [3]float32)

	// PopDebugMarker pops the innermost debug marker scope.
	PopDebugMarker()

	// End ends command recording and prepares the command buffer
	// for submission.
	End() error

	// Reset discards all recorded commands from the command buffer.
	Reset() error
}

// BufferCopy describes the parameters of a copy command
// that copies data from one buffer to another.
type BufferCopy struct {
	From    Buffer
	FromOff int64
	To      Buffer
	ToOff   int64
	Size    int64
}

// ImageCopy describes the parameters of a copy command
// that copies data from one image to another.
type ImageCopy struct {
	From      Image
	FromOff   Off3D
	FromLayer int
	FromLevel int
	To        Image
	ToOff     Off3D
	ToLayer   int
	ToLevel   int
	Size      Dim3D
	Layers    int
}

// BufImgCopy describes the parameters of a copy command
// that copies data between a buffer and an image.
// BufOff must be aligned to 512 bytes.
// Stride[0] must be aligned to 256 bytes.
type BufImgCopy struct {
	Buf    Buffer
	BufOff int64
	// Stride specifies the addressing of image data
	// in the buffer. It is given in pixels.
	// Stride[0] refers to the row length and Stride[1]
	// refers to the image height.
	Stride [2]int64
	Img    Image
	ImgOff Off3D
	Layer  int
	Level  int
	Size   Dim3D
	// DepthCopy selects either the depth or stencil
	// aspects to copy. It is only used if Img has a
	// combined depth/stencil format.
	DepthCopy bool
}

// Sync is the type of a synchronization scope (pipeline-stage mask).
type Sync int

// Synchronization scopes.
const (
	STopOfPipe Sync = 1 << iota
	SVertexInput
	SVertexShading
	SFragmentShading
	SComputeShading
	SColorOutput
	SDSOutput
	SDraw
	SResolve
	SCopy
	SBottomOfPipe
	SAll
	SNone Sync = 0
)

// Access is the type of a memory access scope.
type Access int

// Memory access scopes.
const (
	AVertexBufRead Access = 1 << iota
	AIndexBufRead
	AColorRead
	AColorWrite
	ADSRead
	ADSWrite
	AResolveRead
	AResolveWrite
	ACopyRead
	ACopyWrite
	AShaderRead
	AShaderWrite
	AAnyRead
	AAnyWrite
	ANone Access = 0
)

// Layout is the type of an image layout.
type Layout int

// Image layouts.
const (
	LUndefined Layout = iota
	LCommon
	LColorTarget
	LDSTarget
	LDSRead
	LResolveSrc
	LResolveDst
	LCopySrc
	LCopyDst
	LShaderRead
	LGeneral
	LPresent
)

// Barrier represents a synchronization barrier (no layout/ownership
// change; used for buffer ranges and same-queue image subresources
// whose layout does not change).
type Barrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access
}

// Transition represents a layout transition on a specific image
// subresource, optionally paired with a queue-family ownership
// transfer (QFamBefore != QFamAfter).
type Transition struct {
	Barrier

	LayoutBefore Layout
	LayoutAfter  Layout
	IView        ImageView

	// QFamBefore/QFamAfter are the source/destination queue-family
	// indices. When equal, this is an ordinary transition; the
	// barrier solver sets them to differing values to express one
	// half of a queue ownership transfer (release in the producer's
	// epilogue, acquire in the consumer's prologue).
	QFamBefore uint32
	QFamAfter  uint32
}

// QFamIgnored marks a Transition as not performing a queue-family
// ownership transfer.
const QFamIgnored = ^uint32(0)

// LoadOp is the type of an attachment's load operation.
type LoadOp int

// Load operations.
const (
	LDontCare LoadOp = iota
	LClear
	LLoad
)

// StoreOp is the type of an attachment's store operation.
type StoreOp int

// Store operations.
const (
	SDontCare StoreOp = iota
	SStore
)

// ColorAttachment describes one color render target for a dynamic
// rendering scope (CmdBuffer.BeginPass).
type ColorAttachment struct {
	View  ImageView
	Load  LoadOp
	Store StoreOp
	Clear [4]float32
}

// DSAttachment describes the depth/stencil render target for a
// dynamic rendering scope.
type DSAttachment struct {
	View         ImageView
	LoadDepth    LoadOp
	StoreDepth   StoreOp
	LoadStencil  LoadOp
	StoreStencil StoreOp
	ClearDepth   float32
	ClearStencil uint32
}

// ShaderCode is the interface that defines a shader binary
// for execution in a programmable pipeline stage.
type ShaderCode interface {
	Destroyer
}

// ShaderFunc specifies a function within a shader binary.
type ShaderFunc struct {
	Code ShaderCode
	Name string
}

// Stage is a mask of programmable stages.
type Stage int

// Stages.
const (
	SVertex Stage = 1 << iota
	SFragment
	SCompute
)

// DescType is the type of a descriptor.
type DescType int

// Descriptor types.
const (
	// Read/write buffer.
	DBuffer DescType = iota
	// Read/write image.
	DImage
	// Constant buffer.
	DConstant
	// Sampled texture.
	DTexture
	// Texture sampler.
	DSampler
)

// Descriptor describes data for use in shaders.
type Descriptor struct {
	Type   DescType
	Stages Stage
	Nr     int
	Len    int
}

// DescHeap is the interface that defines a set of descriptors
// for use in programmable pipeline stages.
type DescHeap interface {
	Destroyer

	// New creates enough storage for n copies of each descriptor.
	New(n int) error

	// SetBuffer updates the buffer ranges referred by the given
	// descriptor of the given heap copy.
	SetBuffer(cpy, nr, start int, buf []Buffer, off, size []int64)

	// SetImage updates the image views referred by the given
	// descriptor of the given heap copy.
	SetImage(cpy, nr, start int, iv []ImageView)

	// SetSampler updates the samplers referred by the given
	// descriptor of the given heap copy.
	SetSampler(cpy, nr, start int, splr []Sampler)

	// Count returns the number of heap copies created by New.
	Count() int
}

// DescTable is the interface that defines the bindings
// between a number of descriptor heaps and the shaders
// in a pipeline.
type DescTable interface {
	Destroyer
}

// VertexFmt describes the format of a vertex input.
type VertexFmt int

// Vertex formats.
const (
	Int8 VertexFmt = iota
	Int8x2
	Int8x3
	Int8x4
	Int16
	Int16x2
	Int16x3
	Int16x4
	Int32
	Int32x2
	Int32x3
	Int32x4
	UInt8
	UInt8x2
	UInt8x3
	UInt8x4
	UInt16
	UInt16x2
	UInt16x3
	UInt16x4
	UInt32
	UInt32x2
	UInt32x3
	UInt32x4
	Float32
	Float32x2
	Float32x3
	Float32x4
)

// VertexIn describes a vertex input.
type VertexIn struct {
	Format VertexFmt
	Stride int
	Nr     int
	Name   string
}

// Topology is the type of primitive topologies.
type Topology int

// Primitive topologies.
const (
	TPoint Topology = iota
	TLine
	TLnStrip
	TTriangle
	TTriStrip
)

// IndexFmt describes the format of index buffer data.
type IndexFmt int

// Index formats.
const (
	Index16 IndexFmt = 2
	Index32 IndexFmt = 4
)

// Viewport defines the bounds of a viewport.
type Viewport struct {
	X, Y, Width, Height, Znear, Zfar float32
}

// Scissor defines a scissor rectangle.
type Scissor struct {
	X, Y, Width, Height int
}

// CullMode is the type of cull modes.
type CullMode int

// Cull modes.
const (
	CNone CullMode = iota
	CFront
	CBack
)

// FillMode is the type of triangle fill modes.
type FillMode int

// Triangle fill modes.
const (
	FFill FillMode = iota
	FLines
)

// RasterState defines the rasterization state of a graphics pipeline.
type RasterState struct {
	Clockwise bool
	Cull      CullMode
	Fill      FillMode
	DepthBias bool
	BiasValue float32
	BiasSlope float32
	BiasClamp float32
}

// CmpFunc is the type of comparison functions.
type CmpFunc int

// Comparison functions.
const (
	CNever CmpFunc = iota
	CLess
	CEqual
	CLessEqual
	CGreater
	CNotEqual
	CGreaterEqual
	CAlways
)

// StencilOp is the type of stencil operations.
type StencilOp int

// Stencil operations.
const (
	SKeep StencilOp = iota
	SZero
	SReplace
	SIncClamp
	SDecClamp
	SInvert
	SIncWrap
	SDecWrap
)

// StencilT defines stencil test parameters for the
// depth/stencil state of a graphics pipeline.
type StencilT struct {
	DSFail    [2]StencilOp
	Pass      StencilOp
	ReadMask  uint32
	WriteMask uint32
	Cmp       CmpFunc
}

// DSState defines the depth/stencil state of a graphics pipeline.
type DSState struct {
	DepthTest   bool
	DepthWrite  bool
	DepthCmp    CmpFunc
	StencilTest bool
	Front       StencilT
	Back        StencilT
}

// BlendOp is the type of blend operations.
type BlendOp int

// Blend operations.
const (
	BAdd BlendOp = iota
	BSubtract
	BRevSubtract
	BMin
	BMax
)

// BlendFac is the type of blend factors.
type BlendFac int

// Blend factors.
const (
	BZero BlendFac = iota
	BOne
	BSrcColor
	BInvSrcColor
	BSrcAlpha
	BInvSrcAlpha
	BDstColor
	BInvDstColor
	BDstAlpha
	BInvDstAlpha
	BSrcAlphaSaturated
	BBlendColor
	BInvBlendColor
)

// ColorMask is the type of a color write mask.
type ColorMask int

// Color write masks.
const (
	CRed ColorMask = 1 << iota
	CGreen
	CBlue
	CAlpha
	CAll ColorMask = 1<<iota - 1
)

// ColorBlend defines a render target's blend parameters for the color
// blend state of a graphics pipeline.
type ColorBlend struct {
	Blend     bool
	WriteMask ColorMask
	Op        [2]BlendOp
	SrcFac    [2]BlendFac
	DstFac    [2]BlendFac
}

// BlendState defines the color blend state of a graphics pipeline.
type BlendState struct {
	IndependentBlend bool
	Color            []ColorBlend
}

// GraphState defines the combination of programmable and fixed stages
// of a graphics pipeline. Graphics pipelines are created from graphics
// states. Unlike a RenderPass-based API, ColorFmt/DSFmt name the
// dynamic-rendering attachment formats a pipeline is compatible with.
type GraphState struct {
	VertFunc ShaderFunc
	FragFunc ShaderFunc
	Desc     DescTable
	Input    []VertexIn
	Topology Topology
	Raster   RasterState
	Samples  int
	DS       DSState
	Blend    BlendState
	ColorFmt []PixelFmt
	DSFmt    PixelFmt
}

// CompState defines the state of a compute pipeline.
type CompState struct {
	Func ShaderFunc
	Desc DescTable
}

// Pipeline is the interface that defines a GPU pipeline.
type Pipeline interface {
	Destroyer
}

// Usage is a mask indicating valid uses for a resource.
// It is the union of every access kind a resource will ever see in a
// frame; the render graph's registry records this at allocation time
// and the barrier solver only ever narrows it per access.
type Usage int

// Usage flags for Buffer and Image.
const (
	UShaderRead Usage = 1 << iota
	UShaderWrite
	UShaderConst
	UShaderSample
	UVertexData
	UIndexData
	URenderTarget
	UCopySrc
	UCopyDst
	UGeneric Usage = 1<<iota - 1
)

// Buffer is the interface that defines a GPU buffer.
type Buffer interface {
	Destroyer

	// Visible returns whether the buffer is host visible.
	Visible() bool

	// Bytes returns a slice of length Cap referring to the underlying
	// data, or nil if the buffer is not host visible.
	Bytes() []byte

	// Cap returns the capacity of the buffer in bytes.
	Cap() int64
}

// PixelFmt describes the format of a pixel.
type PixelFmt int

// FInternal is the internal-format bit; client code must not create
// images using internal formats.
const FInternal PixelFmt = 1 << 31

// IsInternal returns whether f is an internal format.
func (f PixelFmt) IsInternal() bool { return f&FInternal == FInternal }

// Pixel formats.
const (
	RGBA8Unorm PixelFmt = iota
	RGBA8Norm
	RGBA8SRGB
	BGRA8Unorm
	BGRA8SRGB
	RG8Unorm
	RG8Norm
	R8Unorm
	R8Norm
	RGBA16Float
	RG16Float
	R16Float
	RGBA32Float
	RG32Float
	R32Float
	D16Unorm
	D32Float
	S8Uint
	D24UnormS8Uint
	D32FloatS8Uint
)

// Dim3D is a three-dimensional size.
type Dim3D struct {
	Width, Height, Depth int
}

// Off3D is a three-dimensional offset.
type Off3D struct {
	X, Y, Z int
}

// Image is the interface that defines a GPU image.
type Image interface {
	Destroyer

	// NewView creates a new image view.
	NewView(typ ViewType, layer, layers, level, levels int) (ImageView, error)
}

// ViewType is the type of a resource view.
type ViewType int

// View types.
const (
	IView1D ViewType = iota
	IView2D
	IView3D
	IViewCube
	IView1DArray
	IView2DArray
	IViewCubeArray
	IView2DMS
	IView2DMSArray
)

// ImageView is the interface that defines a typed view of
// an Image resource.
type ImageView interface {
	Destroyer
}

// Filter is the type of sampler filters.
type Filter int

// Filters.
const (
	FNearest Filter = iota
	FLinear
	FNoMipmap
)

// AddrMode is the type of sampler address modes.
type AddrMode int

// Address modes.
const (
	AWrap AddrMode = iota
	AMirror
	AClamp
)

// Sampler is the interface that defines an image sampler.
type Sampler interface {
	Destroyer
}

// Sampling describes image sampler state.
type Sampling struct {
	Min      Filter
	Mag      Filter
	Mipmap   Filter
	AddrU    AddrMode
	AddrV    AddrMode
	AddrW    AddrMode
	MaxAniso int
	Cmp      CmpFunc
	MinLOD   float32
	MaxLOD   float32
}

// Limits describes implementation limits.
type Limits struct {
	MaxImage1D   int
	MaxImage2D   int
	MaxImageCube int
	MaxImage3D   int
	MaxLayers    int

	MaxDescHeaps      int
	MaxDBuffer        int
	MaxDImage         int
	MaxDConstant      int
	MaxDTexture       int
	MaxDSampler       int
	MaxDBufferRange   int64
	MaxDConstantRange int64

	MaxColorTargets int
	MaxFBSize       [2]int
	MaxFBLayers     int
	MaxPointSize    float32
	MaxViewports    int

	MaxVertexIn   int
	MaxFragmentIn int

	MaxDispatch [3]int
}
