// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package registry

import (
	"errors"
	"testing"

	"github.com/gviegas/rhigraph/driver"
)

func imageDesc() ImageDesc {
	return ImageDesc{
		Size:        driver.Dim3D{Width: 64, Height: 64, Depth: 1},
		Format:      driver.RGBA8Unorm,
		Samples:     1,
		MipLevels:   1,
		ArrayLayers: 1,
		Usage:       driver.URenderTarget,
	}
}

func TestRegisterImage(t *testing.T) {
	r := New()
	h, err := r.RegisterImage(imageDesc())
	if err != nil {
		t.Fatalf("r.RegisterImage:\nhave %v\nwant nil", err)
	}
	if h == UnknownHandle {
		t.Fatal("r.RegisterImage: handle is UnknownHandle")
	}
	res, err := r.Get(h)
	if err != nil {
		t.Fatalf("r.Get:\nhave %v\nwant nil", err)
	}
	if res.Kind != KindImage {
		t.Fatalf("res.Kind:\nhave %v\nwant KindImage", res.Kind)
	}
	if res.Image.Format != driver.RGBA8Unorm {
		t.Fatalf("res.Image.Format:\nhave %v\nwant RGBA8Unorm", res.Image.Format)
	}
}

func TestRegisterBuffer(t *testing.T) {
	r := New()
	h, err := r.RegisterBuffer(BufferDesc{ByteSize: 1024, Usage: driver.UCopyDst, MemoryKind: MemDevice})
	if err != nil {
		t.Fatalf("r.RegisterBuffer:\nhave %v\nwant nil", err)
	}
	res, err := r.Get(h)
	if err != nil {
		t.Fatalf("r.Get:\nhave %v\nwant nil", err)
	}
	if res.Kind != KindBuffer {
		t.Fatalf("res.Kind:\nhave %v\nwant KindBuffer", res.Kind)
	}
	if res.Buffer.ByteSize != 1024 {
		t.Fatalf("res.Buffer.ByteSize:\nhave %d\nwant 1024", res.Buffer.ByteSize)
	}
}

func TestGetStaleHandle(t *testing.T) {
	r := New()
	h, err := r.RegisterImage(imageDesc())
	if err != nil {
		t.Fatalf("r.RegisterImage:\nhave %v\nwant nil", err)
	}
	r.Free(h)
	if _, err = r.Get(h); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("r.Get after Free:\nhave %v\nwant ErrUnknownHandle", err)
	}
	// The slot must be reusable, and the new handle must differ from
	// the stale one by generation.
	h2, err := r.RegisterImage(imageDesc())
	if err != nil {
		t.Fatalf("r.RegisterImage:\nhave %v\nwant nil", err)
	}
	if h2 == h {
		t.Fatal("r.RegisterImage: reused handle equals freed handle")
	}
	if _, err = r.Get(h2); err != nil {
		t.Fatalf("r.Get:\nhave %v\nwant nil", err)
	}
	if _, err = r.Get(h); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("r.Get stale after reuse:\nhave %v\nwant ErrUnknownHandle", err)
	}
}

func TestLastState(t *testing.T) {
	r := New()
	h, err := r.RegisterImage(imageDesc())
	if err != nil {
		t.Fatalf("r.RegisterImage:\nhave %v\nwant nil", err)
	}
	s, err := r.LastState(h)
	if err != nil {
		t.Fatalf("r.LastState:\nhave %v\nwant nil", err)
	}
	want := AccessState{driver.STopOfPipe, driver.ANone, driver.LUndefined, driver.QFamIgnored}
	if s != want {
		t.Fatalf("r.LastState:\nhave %v\nwant %v", s, want)
	}
	set := AccessState{driver.SColorOutput, driver.AColorWrite, driver.LColorTarget, 0}
	if err = r.SetLastState(h, set); err != nil {
		t.Fatalf("r.SetLastState:\nhave %v\nwant nil", err)
	}
	if s, _ = r.LastState(h); s != set {
		t.Fatalf("r.LastState:\nhave %v\nwant %v", s, set)
	}
}

func TestBindViewRejectsBuffer(t *testing.T) {
	r := New()
	h, err := r.RegisterBuffer(BufferDesc{ByteSize: 64, Usage: driver.UCopyDst})
	if err != nil {
		t.Fatalf("r.RegisterBuffer:\nhave %v\nwant nil", err)
	}
	if err = r.BindView(h, nil); err == nil {
		t.Fatal("r.BindView on buffer:\nhave nil\nwant error")
	}
}

func TestHandleReuseAcrossMany(t *testing.T) {
	r := New()
	var hs []Handle
	for i := 0; i < 100; i++ {
		h, err := r.RegisterImage(imageDesc())
		if err != nil {
			t.Fatalf("r.RegisterImage:\nhave %v\nwant nil", err)
		}
		hs = append(hs, h)
	}
	seen := make(map[Handle]bool, len(hs))
	for _, h := range hs {
		if seen[h] {
			t.Fatalf("duplicate handle %#x", uint64(h))
		}
		seen[h] = true
	}
	for _, h := range hs {
		r.Free(h)
	}
	for i := 0; i < 100; i++ {
		h, err := r.RegisterImage(imageDesc())
		if err != nil {
			t.Fatalf("r.RegisterImage:\nhave %v\nwant nil", err)
		}
		if seen[h] {
			t.Fatalf("reused handle %#x equals a freed one", uint64(h))
		}
	}
}
