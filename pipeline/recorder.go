// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"fmt"

	"github.com/gogpu/glass/target"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RecorderState is the state of a Recorder.
type RecorderState uint8

const (
	StateRecording RecorderState = iota
	StateInRenderPass
	StateInComputePass
	StateFinished
	StateDiscarded
)

func (s RecorderState) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateInRenderPass:
		return "in-render-pass"
	case StateInComputePass:
		return "in-compute-pass"
	case StateFinished:
		return "finished"
	case StateDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// ColorAttachment is one color output of a render pass.
type ColorAttachment struct {
	Target *target.RenderTarget

	// Resolve receives the resolved image when Target is multisampled.
	Resolve *target.RenderTarget

	// Load defaults to gputypes.LoadOpClear.
	Load  gputypes.LoadOp
	Clear gputypes.Color
}

// RenderPassDesc describes a render pass.
type RenderPassDesc struct {
	Label string
	Color []ColorAttachment
}

// Recorder records one frame's commands into a single command encoder.
//
// State machine:
//
//	Recording   -> BeginRenderPass/BeginComputePass -> InRenderPass/InComputePass
//	InXxxPass   -> End                              -> Recording
//	Recording   -> Finish                           -> Finished
//	any         -> Discard                          -> Discarded
//
// A Recorder is not safe for concurrent use.
type Recorder struct {
	device  hal.Device
	encoder hal.CommandEncoder
	ring    *PushRing
	label   string
	state   RecorderState

	render  hal.RenderPassEncoder
	compute hal.ComputePassEncoder
	passes  int
}

// NewRecorder opens a command encoder on device. ring receives the
// push-constant blocks of every BindAndDispatch recorded through it and
// may be nil when no pipeline uses push constants.
func NewRecorder(device hal.Device, ring *PushRing, label string) (*Recorder, error) {
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("pipeline: begin encoding: %w", err)
	}
	return &Recorder{
		device:  device,
		encoder: encoder,
		ring:    ring,
		label:   label,
	}, nil
}

// State returns the current state.
func (r *Recorder) State() RecorderState { return r.state }

// Passes is the number of passes begun so far.
func (r *Recorder) Passes() int { return r.passes }

// Ring returns the push-constant ring, or nil.
func (r *Recorder) Ring() *PushRing { return r.ring }

// Scope reports the kind of the open pass.
func (r *Recorder) Scope() (Kind, bool) {
	switch r.state {
	case StateInRenderPass:
		return KindRender, true
	case StateInComputePass:
		return KindCompute, true
	default:
		return 0, false
	}
}

func (r *Recorder) checkOpen() error {
	if r.state == StateFinished || r.state == StateDiscarded {
		return ErrRecorderClosed
	}
	return nil
}

func (r *Recorder) checkIdle(op string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if r.state != StateRecording {
		return fmt.Errorf("%w: %s while %s", ErrInvalidPassNesting, op, r.state)
	}
	return nil
}

// BeginRenderPass opens a render pass over the attachments in desc.
func (r *Recorder) BeginRenderPass(desc RenderPassDesc) error {
	if err := r.checkIdle("begin render pass"); err != nil {
		return err
	}
	if len(desc.Color) == 0 {
		return fmt.Errorf("%w: render pass %q has no color attachments", ErrInvalidSpec, desc.Label)
	}

	attachments := make([]hal.RenderPassColorAttachment, 0, len(desc.Color))
	for i, c := range desc.Color {
		if c.Target == nil || c.Target.View == nil {
			return fmt.Errorf("%w: render pass %q attachment %d has no view", ErrInvalidSpec, desc.Label, i)
		}
		load := c.Load
		if load == gputypes.LoadOpUndefined {
			load = gputypes.LoadOpClear
		}
		a := hal.RenderPassColorAttachment{
			View:       c.Target.View,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: c.Clear,
		}
		if c.Resolve != nil {
			a.ResolveTarget = c.Resolve.View
		}
		attachments = append(attachments, a)
	}

	r.render = r.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: attachments,
	})
	r.state = StateInRenderPass
	r.passes++
	return nil
}

// BeginComputePass opens a compute pass.
func (r *Recorder) BeginComputePass(label string) error {
	if err := r.checkIdle("begin compute pass"); err != nil {
		return err
	}
	r.compute = r.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	r.state = StateInComputePass
	r.passes++
	return nil
}

// End closes the open pass.
func (r *Recorder) End() error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	switch r.state {
	case StateInRenderPass:
		r.render.End()
		r.render = nil
	case StateInComputePass:
		r.compute.End()
		r.compute = nil
	default:
		return fmt.Errorf("%w: end without an open pass", ErrInvalidPassNesting)
	}
	r.state = StateRecording
	return nil
}

// RenderPass returns the open render pass encoder for raw commands.
func (r *Recorder) RenderPass() (hal.RenderPassEncoder, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if r.state != StateInRenderPass {
		return nil, fmt.Errorf("%w: no render pass open", ErrInvalidPassNesting)
	}
	return r.render, nil
}

// ComputePass returns the open compute pass encoder for raw commands.
func (r *Recorder) ComputePass() (hal.ComputePassEncoder, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if r.state != StateInComputePass {
		return nil, fmt.Errorf("%w: no compute pass open", ErrInvalidPassNesting)
	}
	return r.compute, nil
}

// TransitionTexture records a usage barrier for the whole of t. Barriers
// are only legal between passes.
func (r *Recorder) TransitionTexture(t *target.RenderTarget, from, to gputypes.TextureUsage) error {
	if err := r.checkIdle("texture transition"); err != nil {
		return err
	}
	r.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.Texture,
		Range:   hal.TextureRange{MipLevelCount: 1, ArrayLayerCount: 1},
		Usage:   hal.TextureUsageTransition{OldUsage: from, NewUsage: to},
	}})
	return nil
}

// Finish uploads the push ring and ends encoding. The returned command
// buffer is ready for submission; the caller frees it once the
// submission completes.
func (r *Recorder) Finish() (hal.CommandBuffer, error) {
	if err := r.checkIdle("finish"); err != nil {
		return nil, err
	}
	if r.ring != nil {
		if err := r.ring.Flush(); err != nil {
			r.Discard()
			return nil, err
		}
	}
	cb, err := r.encoder.EndEncoding()
	if err != nil {
		r.Discard()
		return nil, fmt.Errorf("pipeline: end encoding: %w", err)
	}
	r.state = StateFinished
	return cb, nil
}

// Discard abandons everything recorded. It is a no-op once the recorder
// is finished or discarded.
func (r *Recorder) Discard() {
	switch r.state {
	case StateFinished, StateDiscarded:
		return
	case StateInRenderPass:
		r.render.End()
	case StateInComputePass:
		r.compute.End()
	}
	r.render, r.compute = nil, nil
	r.encoder.DiscardEncoding()
	r.state = StateDiscarded
}
