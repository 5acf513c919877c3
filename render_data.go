// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

import (
	"github.com/gogpu/glass/pipeline"
	"github.com/gogpu/glass/target"
	"github.com/gogpu/gputypes"
)

// RenderData is handed to App.Render for one window and one frame. It is
// invalid once Render returns; every accessor then fails with
// ErrRenderDataExpired.
type RenderData struct {
	window WindowID
	frame  uint64

	hdr     *target.RenderTarget
	swap    *target.RenderTarget
	rec     *pipeline.Recorder
	reg     *pipeline.Registry
	expired bool
}

// Window returns the window being rendered.
func (rd *RenderData) Window() WindowID { return rd.window }

// Frame returns the frame counter of the tick.
func (rd *RenderData) Frame() uint64 { return rd.frame }

// HDR returns the window's HDR target. Passes rendering into it feed the
// post-process chain. The scene pass has already cleared it.
func (rd *RenderData) HDR() (*target.RenderTarget, error) {
	if rd.expired {
		return nil, ErrRenderDataExpired
	}
	return rd.hdr, nil
}

// SwapChain returns the acquired swap-chain image. The post-process
// chain overwrites it after Render.
func (rd *RenderData) SwapChain() (*target.RenderTarget, error) {
	if rd.expired {
		return nil, ErrRenderDataExpired
	}
	return rd.swap, nil
}

// Recorder returns the frame's recorder. Passes begun on it must be
// ended before Render returns.
func (rd *RenderData) Recorder() (*pipeline.Recorder, error) {
	if rd.expired {
		return nil, ErrRenderDataExpired
	}
	return rd.rec, nil
}

// Record binds and dispatches req. Inside an open pass the request is
// recorded there. Otherwise a pass of the pipeline's kind is opened
// around it: render requests load and draw onto the HDR target.
func (rd *RenderData) Record(req pipeline.Request) error {
	if rd.expired {
		return ErrRenderDataExpired
	}
	if _, open := rd.rec.Scope(); open {
		return rd.reg.BindAndDispatch(rd.rec, req.Pipeline, req.Push, req.BindGroups, req.Work)
	}

	p, err := rd.reg.Get(req.Pipeline)
	if err != nil {
		return err
	}
	switch p.Kind() {
	case pipeline.KindCompute:
		err = rd.rec.BeginComputePass(p.Label())
	default:
		err = rd.rec.BeginRenderPass(pipeline.RenderPassDesc{
			Label: p.Label(),
			Color: []pipeline.ColorAttachment{{Target: rd.hdr, Load: gputypes.LoadOpLoad}},
		})
	}
	if err != nil {
		return err
	}
	if err := rd.reg.BindAndDispatch(rd.rec, req.Pipeline, req.Push, req.BindGroups, req.Work); err != nil {
		_ = rd.rec.End()
		return err
	}
	return rd.rec.End()
}

func (rd *RenderData) expire() { rd.expired = true }
