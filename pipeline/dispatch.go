// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Work is the draw or dispatch recorded after binding: Draw or
// DrawIndexed for render pipelines, Workgroups for compute pipelines.
type Work interface {
	workKind() Kind
}

// Draw issues a non-indexed draw.
type Draw struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32

	// VertexBuffers are bound to slots 0..n-1.
	VertexBuffers []hal.Buffer
}

// DrawIndexed issues an indexed draw.
type DrawIndexed struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32

	IndexBuffer   hal.Buffer
	IndexFormat   gputypes.IndexFormat
	VertexBuffers []hal.Buffer
}

// Workgroups dispatches a compute grid.
type Workgroups struct {
	X, Y, Z uint32
}

func (Draw) workKind() Kind        { return KindRender }
func (DrawIndexed) workKind() Kind { return KindRender }
func (Workgroups) workKind() Kind  { return KindCompute }

// Request is one deferred BindAndDispatch.
type Request struct {
	Pipeline   ID
	Push       []byte
	BindGroups []hal.BindGroup
	Work       Work
}

// BindAndDispatch binds the pipeline, its bind groups and its
// push-constant block, then records the work. Arguments are checked in
// this order, and nothing is recorded when any check fails:
// unknown pipeline, push-constant size, open pass kind, work kind,
// bind group count.
func (r *Registry) BindAndDispatch(rec *Recorder, id ID, push []byte, groups []hal.BindGroup, work Work) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	if uint32(len(push)) != p.push.Size {
		return fmt.Errorf("%w: pipeline %q wants %d bytes, got %d",
			ErrPushConstantSizeMismatch, p.label, p.push.Size, len(push))
	}
	if err := rec.checkOpen(); err != nil {
		return err
	}
	scope, open := rec.Scope()
	if !open || scope != p.kind {
		return fmt.Errorf("%w: %s pipeline %q recorded while %s", ErrInvalidPassNesting, p.kind, p.label, rec.State())
	}
	if err := checkWork(p, work); err != nil {
		return err
	}
	if len(groups) != len(p.groupLayouts) {
		return fmt.Errorf("%w: pipeline %q wants %d, got %d", ErrBindGroupCount, p.label, len(p.groupLayouts), len(groups))
	}

	var (
		pushGroup  hal.BindGroup
		pushOffset uint32
	)
	if p.push.Size > 0 {
		if rec.ring == nil {
			return fmt.Errorf("%w: pipeline %q takes push constants but the recorder has no ring", ErrInvalidSpec, p.label)
		}
		pushGroup, pushOffset, err = rec.ring.Push(push)
		if err != nil {
			return err
		}
	}
	pushIndex := uint32(len(groups))

	switch p.kind {
	case KindRender:
		pass := rec.render
		pass.SetPipeline(p.render)
		for i, g := range groups {
			pass.SetBindGroup(uint32(i), g, nil)
		}
		if pushGroup != nil {
			pass.SetBindGroup(pushIndex, pushGroup, []uint32{pushOffset})
		}
		recordDraw(pass, work)
	case KindCompute:
		pass := rec.compute
		pass.SetPipeline(p.compute)
		for i, g := range groups {
			pass.SetBindGroup(uint32(i), g, nil)
		}
		if pushGroup != nil {
			pass.SetBindGroup(pushIndex, pushGroup, []uint32{pushOffset})
		}
		w := work.(Workgroups)
		pass.Dispatch(w.X, w.Y, w.Z)
	}
	return nil
}

func checkWork(p *Pipeline, work Work) error {
	if work == nil || work.workKind() != p.kind {
		return fmt.Errorf("%w: %T for %s pipeline %q", ErrInvalidWork, work, p.kind, p.label)
	}
	if w, ok := work.(DrawIndexed); ok && w.IndexBuffer == nil {
		return fmt.Errorf("%w: indexed draw for %q has no index buffer", ErrInvalidWork, p.label)
	}
	return nil
}

func recordDraw(pass hal.RenderPassEncoder, work Work) {
	switch w := work.(type) {
	case Draw:
		for i, b := range w.VertexBuffers {
			pass.SetVertexBuffer(uint32(i), b, 0)
		}
		pass.Draw(w.VertexCount, max(w.InstanceCount, 1), w.FirstVertex, w.FirstInstance)
	case DrawIndexed:
		for i, b := range w.VertexBuffers {
			pass.SetVertexBuffer(uint32(i), b, 0)
		}
		format := w.IndexFormat
		if format == gputypes.IndexFormatUndefined {
			format = gputypes.IndexFormatUint32
		}
		pass.SetIndexBuffer(w.IndexBuffer, format, 0)
		pass.DrawIndexed(w.IndexCount, max(w.InstanceCount, 1), w.FirstIndex, w.BaseVertex, w.FirstInstance)
	}
}

// requestQueue holds one window's pending requests, split by kind.
type requestQueue struct {
	compute []Request
	render  []Request
}

// Enqueue validates req and queues it for the window identified by
// target. Requests are drained once per frame; compute requests are
// recorded before render requests.
func (r *Registry) Enqueue(target uint64, req Request) error {
	p, err := r.Get(req.Pipeline)
	if err != nil {
		return err
	}
	if uint32(len(req.Push)) != p.push.Size {
		return fmt.Errorf("%w: pipeline %q wants %d bytes, got %d",
			ErrPushConstantSizeMismatch, p.label, p.push.Size, len(req.Push))
	}
	if err := checkWork(p, req.Work); err != nil {
		return err
	}
	if len(req.BindGroups) != len(p.groupLayouts) {
		return fmt.Errorf("%w: pipeline %q wants %d, got %d", ErrBindGroupCount, p.label, len(p.groupLayouts), len(req.BindGroups))
	}

	// The frame may still be using the caller's slice.
	req.Push = append([]byte(nil), req.Push...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	q := r.queues[target]
	if q == nil {
		q = &requestQueue{}
		r.queues[target] = q
	}
	if p.kind == KindCompute {
		q.compute = append(q.compute, req)
	} else {
		q.render = append(q.render, req)
	}
	return nil
}

// Drain removes and returns the requests queued for target.
func (r *Registry) Drain(target uint64) (compute, render []Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.queues[target]
	if q == nil {
		return nil, nil
	}
	delete(r.queues, target)
	return q.compute, q.render
}

// Pending returns the number of requests queued for target.
func (r *Registry) Pending(target uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := r.queues[target]
	if q == nil {
		return 0
	}
	return len(q.compute) + len(q.render)
}
