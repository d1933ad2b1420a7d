// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mock

import (
	"context"

	"github.com/gviegas/rhigraph/driver"
)

// Queue is the in-memory driver.Queue implementation. Submit executes
// synchronously: there is no real hardware to race against, so the
// timeline advances, and the oracle observes every recorded command,
// before Submit returns.
type Queue struct {
	gpu    *GPU
	kind   driver.QueueKind
	family uint32
	tl     *semaphore
}

func newQueue(g *GPU, kind driver.QueueKind, family uint32) *Queue {
	return &Queue{gpu: g, kind: kind, family: family, tl: newTimeline()}
}

func (q *Queue) Kind() driver.QueueKind   { return q.kind }
func (q *Queue) FamilyIndex() uint32      { return q.family }
func (q *Queue) Timeline() driver.Semaphore { return q.tl }
func (q *Queue) TimelineValue() uint64    { return q.tl.value.Load() }

func (q *Queue) NewCmdBuffer() (driver.CmdBuffer, error) {
	return &cmdBuffer{queue: q}, nil
}

// Submit validates that every cross-queue Wait has already been
// satisfied (Submit being synchronous, a correctly ordered caller
// will always find this true; a violation here means the render
// graph's executor submitted work before its producer), replays the
// recorded command log against the GPU's hazard oracle, then
// advances the queue's timeline and every explicit Signal.
func (q *Queue) Submit(cb driver.CmdBuffer, waits []driver.Wait, signals []driver.Signal) (uint64, error) {
	mcb, ok := cb.(*cmdBuffer)
	if !ok {
		return 0, driver.ErrFatal
	}
	for _, w := range waits {
		if sem, ok := w.Sem.(*semaphore); ok && !sem.binary {
			if sem.value.Load() < w.Value {
				q.gpu.oracle.mu.Lock()
				q.gpu.oracle.violations = append(q.gpu.oracle.violations, Violation{
					Resource: "submit",
					Detail:   "waited on a timeline value that had not yet been signaled",
				})
				q.gpu.oracle.mu.Unlock()
			}
		}
	}

	for _, op := range mcb.ops {
		op.exec(&q.gpu.oracle)
	}

	value := q.tl.value.Add(1)
	for _, s := range signals {
		if sem, ok := s.Sem.(*semaphore); ok {
			if sem.binary {
				sem.value.Store(1)
			} else {
				sem.value.Store(s.Value)
			}
		}
	}
	return value, nil
}

// Wait is a no-op beyond checking ctx and the already-advanced
// timeline: Submit is synchronous, so by the time Wait is called the
// target value has either already been reached or never will be.
func (q *Queue) Wait(ctx context.Context, value uint64) error {
	if err := ctx.Err(); err != nil {
		return driver.ErrTimeout
	}
	if q.tl.value.Load() < value {
		return driver.ErrTimeout
	}
	return nil
}

// op is one recorded command relevant to hazard tracking. Commands
// that do not read or write a tracked resource (pipeline/viewport/
// descriptor-table binds, draws that only touch whatever the bound
// descriptor table already covers) are not recorded: the render
// graph's barriers operate at resource granularity between passes,
// not at individual draw-call granularity, so only copy/attachment/
// barrier commands need replaying here.
type op struct {
	exec func(o *oracle)
}

type cmdBuffer struct {
	queue *Queue
	ops   []op
}

func (c *cmdBuffer) Destroy() {}

func (c *cmdBuffer) Begin() error { c.ops = c.ops[:0]; return nil }

func (c *cmdBuffer) Reset() error { c.ops = c.ops[:0]; return nil }

func (c *cmdBuffer) End() error { return nil }

func (c *cmdBuffer) BeginPass(color []driver.ColorAttachment, ds *driver.DSAttachment, width, height, layers int) {
	for _, a := range color {
		v, write := a.View, a.Store == driver.SStore
		c.ops = append(c.ops, op{func(o *oracle) { o.access(v, write, "color attachment") }})
	}
	if ds != nil {
		v := ds.View
		write := ds.StoreDepth == driver.SStore || ds.StoreStencil == driver.SStore
		c.ops = append(c.ops, op{func(o *oracle) { o.access(v, write, "depth/stencil attachment") }})
	}
}

func (c *cmdBuffer) EndPass() {}

func (c *cmdBuffer) BeginWork(wait bool) {}
func (c *cmdBuffer) EndWork()            {}
func (c *cmdBuffer) BeginBlit(wait bool) {}
func (c *cmdBuffer) EndBlit()            {}

func (c *cmdBuffer) BeginConditional(buf driver.Buffer, off int64) {}
func (c *cmdBuffer) EndConditional()                               {}

func (c *cmdBuffer) SetPipeline(pl driver.Pipeline)                               {}
func (c *cmdBuffer) SetViewport(vp []driver.Viewport)                             {}
func (c *cmdBuffer) SetScissor(sciss []driver.Scissor)                            {}
func (c *cmdBuffer) SetBlendColor(r, g, b, a float32)                             {}
func (c *cmdBuffer) SetStencilRef(value uint32)                                   {}
func (c *cmdBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64)     {}
func (c *cmdBuffer) SetIndexBuf(format driver.IndexFmt, buf driver.Buffer, off int64) {}
func (c *cmdBuffer) SetDescTableGraph(table driver.DescTable, start int, heapCopy []int) {}
func (c *cmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int)  {}

func (c *cmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int)                     {}
func (c *cmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int)       {}
func (c *cmdBuffer) DrawIndirect(buf driver.Buffer, off int64, drawCount int, stride int64) {
	b := buf
	c.ops = append(c.ops, op{func(o *oracle) { o.access(b, false, "indirect draw params") }})
}
func (c *cmdBuffer) DrawIndexedIndirect(buf driver.Buffer, off int64, drawCount int, stride int64) {
	b := buf
	c.ops = append(c.ops, op{func(o *oracle) { o.access(b, false, "indirect draw params") }})
}
func (c *cmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int) {}
func (c *cmdBuffer) DispatchIndirect(buf driver.Buffer, off int64) {
	b := buf
	c.ops = append(c.ops, op{func(o *oracle) { o.access(b, false, "indirect dispatch params") }})
}

func (c *cmdBuffer) CopyBuffer(param *driver.BufferCopy) {
	from, to := param.From, param.To
	c.ops = append(c.ops, op{func(o *oracle) { o.access(from, false, "copy source buffer") }})
	c.ops = append(c.ops, op{func(o *oracle) { o.access(to, true, "copy destination buffer") }})
}

func (c *cmdBuffer) CopyImage(param *driver.ImageCopy) {
	from, to := param.From, param.To
	c.ops = append(c.ops, op{func(o *oracle) { o.access(from, false, "copy source image") }})
	c.ops = append(c.ops, op{func(o *oracle) { o.access(to, true, "copy destination image") }})
}

func (c *cmdBuffer) CopyBufToImg(param *driver.BufImgCopy) {
	buf, img := param.Buf, param.Img
	c.ops = append(c.ops, op{func(o *oracle) { o.access(buf, false, "copy source buffer") }})
	c.ops = append(c.ops, op{func(o *oracle) { o.access(img, true, "copy destination image") }})
}

func (c *cmdBuffer) CopyImgToBuf(param *driver.BufImgCopy) {
	buf, img := param.Buf, param.Img
	c.ops = append(c.ops, op{func(o *oracle) { o.access(img, false, "copy source image") }})
	c.ops = append(c.ops, op{func(o *oracle) { o.access(buf, true, "copy destination buffer") }})
}

func (c *cmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {
	b := buf
	c.ops = append(c.ops, op{func(o *oracle) { o.access(b, true, "fill destination buffer") }})
}

func (c *cmdBuffer) Barrier(b []driver.Barrier) {
	if len(b) == 0 {
		return
	}
	c.ops = append(c.ops, op{func(o *oracle) { o.barrierGlobal() }})
}

func (c *cmdBuffer) Transition(t []driver.Transition) {
	views := make([]driver.ImageView, len(t))
	for i, tr := range t {
		views[i] = tr.IView
	}
	c.ops = append(c.ops, op{func(o *oracle) {
		for _, v := range views {
			o.transitionResource(v)
		}
	}})
}

func (c *cmdBuffer) PushDebugMarker(name string, color [3]float32) {}
func (c *cmdBuffer) PopDebugMarker()                               {}
