// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mock

import "github.com/gviegas/rhigraph/driver"

type buffer struct {
	size    int64
	visible bool
	usage   driver.Usage
	data    []byte
}

func (b *buffer) Visible() bool   { return b.visible }
func (b *buffer) Bytes() []byte   { return b.data }
func (b *buffer) Cap() int64      { return b.size }
func (b *buffer) Destroy()        {}

type image struct {
	gpu     *GPU
	pixFmt  driver.PixelFmt
	size    driver.Dim3D
	layers  int
	levels  int
	samples int
	usage   driver.Usage
}

func (im *image) Destroy() {}

func (im *image) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	return &imageView{img: im, typ: typ, layer: layer, layers: layers, level: level, levels: levels}, nil
}

// imageView is the unit of hazard tracking the oracle keys on: every
// subresource range gets its own view in practice (the registry holds
// one view per resource, bound with BindView or set at swapchain
// import), so tracking per-view is an adequate
// approximation of per-subresource tracking for a mock backend.
type imageView struct {
	img    *image
	typ    driver.ViewType
	layer  int
	layers int
	level  int
	levels int
}

func (v *imageView) Destroy() {}

type sampler struct{ spln driver.Sampling }

func (s *sampler) Destroy() {}

type shaderCode struct{ data []byte }

func (s *shaderCode) Destroy() {}

type descHeap struct {
	descs []driver.Descriptor
	n     int
}

func (h *descHeap) Destroy() {}

func (h *descHeap) New(n int) error {
	h.n = n
	return nil
}

func (h *descHeap) SetBuffer(cpy, nr, start int, buf []driver.Buffer, off, size []int64) {}
func (h *descHeap) SetImage(cpy, nr, start int, iv []driver.ImageView)                    {}
func (h *descHeap) SetSampler(cpy, nr, start int, splr []driver.Sampler)                  {}
func (h *descHeap) Count() int                                                            { return h.n }

type descTable struct{ heaps []driver.DescHeap }

func (t *descTable) Destroy() {}

type pipeline struct{ state any }

func (p *pipeline) Destroy() {}
