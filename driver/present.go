// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

// Windowing/compositor mechanics are an external collaborator (see
// spec's scope notes); this package only owns the acquire/present
// semaphore contract a Swapchain exposes to the render graph.

// ErrCannotPresent means that the driver and/or device do not
// support presentation.
var ErrCannotPresent = newDriverErr("presentation not supported")

// ErrSurface represents an error related to a specific presentation
// surface. This error usually indicates that a surface misconfiguration
// is preventing correct operation.
var ErrSurface = newDriverErr("surface-related error")

// ErrSwapchain represents an error related to a specific
// swapchain. This error usually indicates that changes to the surface
// made the swapchain unusable.
var ErrSwapchain = newDriverErr("swapchain-related error")

// ErrNoBackbuffer means that all available backbuffers were acquired.
// Backbuffers are released during presentation.
var ErrNoBackbuffer = newDriverErr("all backbuffers in use")

// SurfaceHandle identifies a presentation surface owned by the
// windowing layer. It is opaque to the render graph - the core never
// interprets it, only forwards it to Presenter.NewSwapchain.
type SurfaceHandle any

// Presenter is the interface that a GPU may implement
// to enable presentation on a display.
type Presenter interface {
	// NewSwapchain creates a new swapchain bound to the given
	// surface. Only one swapchain can be associated with a specific
	// surface at a time.
	NewSwapchain(surface SurfaceHandle, imageCount int) (Swapchain, error)
}

// Swapchain is the interface that defines a n-buffered swapchain for
// presentation. Each backbuffer is reachable as an Image through
// Views; the render graph's Resource Registry imports one of them
// per frame as a handle carrying the acquire/present semaphore pair
// the Barrier Solver and Executor consult.
type Swapchain interface {
	Destroyer

	// Views returns the list of image views that comprise the
	// swapchain. Unchanged as long as Destroy/Recreate are not called.
	Views() []ImageView

	// Next acquires the next writable backbuffer. It returns its
	// index and the binary Semaphore that will be signaled once the
	// backbuffer is actually available for writing; the render
	// graph's executor inserts this semaphore as a Wait on whichever
	// pass first accesses the imported resource.
	Next() (index int, acquire Semaphore, err error)

	// PresentSemaphore returns the binary Semaphore the backbuffer at
	// index signals once its last writer completes; the render
	// graph's trailing epilogue group signals it, and Present waits
	// on it before presentation may occur. One semaphore per
	// backbuffer is kept for the swapchain's lifetime, mirroring how
	// a Vulkan swapchain's per-image semaphores are reused across
	// acquire/present cycles rather than created per frame.
	PresentSemaphore(index int) Semaphore

	// Present presents the backbuffer identified by index. wait is
	// the binary Semaphore that must be signaled (by the last pass
	// to write the backbuffer) before presentation may occur; callers
	// pass the same Semaphore PresentSemaphore(index) returned.
	Present(index int, wait Semaphore) error

	// Recreate recreates the swapchain in response to an
	// ErrSwapchain error. It is synchronous: it waits for the device
	// to go idle before returning.
	Recreate() error

	// Format returns the image views' PixelFmt.
	Format() PixelFmt
}
