// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mock

import "github.com/gviegas/rhigraph/driver"

// NewSwapchain implements driver.Presenter. surface is ignored - the
// mock has no real windowing system backing it - but imageCount
// backbuffers are allocated so the executor's present loop has real
// images to read hazards from.
func (g *GPU) NewSwapchain(surface driver.SurfaceHandle, imageCount int) (driver.Swapchain, error) {
	if imageCount < 1 {
		imageCount = 2
	}
	sc := &swapchain{gpu: g, format: driver.BGRA8Unorm}
	sc.views = make([]driver.ImageView, imageCount)
	sc.acquireSems = make([]*semaphore, imageCount)
	sc.presentSems = make([]*semaphore, imageCount)
	for i := range sc.views {
		img, _ := g.NewImage(sc.format, driver.Dim3D{Width: 1920, Height: 1080, Depth: 1}, 1, 1, 1, driver.URenderTarget|driver.UCopySrc)
		v, _ := img.NewView(driver.IView2D, 0, 1, 0, 1)
		sc.views[i] = v
		sc.acquireSems[i] = newBinarySem()
		sc.presentSems[i] = newBinarySem()
	}
	return sc, nil
}

type swapchain struct {
	gpu         *GPU
	format      driver.PixelFmt
	views       []driver.ImageView
	acquireSems []*semaphore
	presentSems []*semaphore
	next        int
}

func (s *swapchain) Destroy() {}

func (s *swapchain) Views() []driver.ImageView { return s.views }

func (s *swapchain) Format() driver.PixelFmt { return s.format }

func (s *swapchain) Next() (int, driver.Semaphore, error) {
	idx := s.next
	s.next = (s.next + 1) % len(s.views)
	sem := s.acquireSems[idx]
	sem.value.Store(1)
	return idx, sem, nil
}

func (s *swapchain) PresentSemaphore(index int) driver.Semaphore {
	return s.presentSems[index]
}

// Present consumes wait immediately, mirroring Submit's synchronous
// execution model: the mock has nothing asynchronous to present to.
func (s *swapchain) Present(index int, wait driver.Semaphore) error {
	return nil
}

func (s *swapchain) Recreate() error { return nil }
