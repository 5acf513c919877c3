// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package postprocess

import (
	"fmt"

	"github.com/gogpu/glass/pipeline"
	"github.com/gogpu/glass/target"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const (
	usageAttachment = gputypes.TextureUsageRenderAttachment
	usageSampled    = gputypes.TextureUsageTextureBinding
)

// sourceHDR keys bind groups reading the HDR target.
const sourceHDR = -1

type groupKey struct {
	pipeline pipeline.ID
	source   int // bloom level, or sourceHDR
}

// Chain owns the HDR target and bloom levels of one window and records
// bloom and tonemap into the window's frame.
//
// A Chain is not safe for concurrent use.
type Chain struct {
	p     *Pipelines
	alloc *target.Allocator
	label string

	hdr    *target.RenderTarget
	levels []*target.RenderTarget
	width  uint32
	height uint32
	floor  uint32
	max    uint32

	groups map[groupKey]hal.BindGroup

	thresholdIn      [2]float32
	threshold        [4]float32
	thresholdValid   bool
	thresholdUpdates int

	released bool
}

// NewChain returns a chain allocating its targets from alloc. No target
// exists until Ensure.
func (p *Pipelines) NewChain(alloc *target.Allocator, label string) *Chain {
	return &Chain{
		p:      p,
		alloc:  alloc,
		label:  label,
		groups: make(map[groupKey]hal.BindGroup),
	}
}

// HDR returns the high-dynamic-range target the application renders
// into, or nil before Ensure.
func (c *Chain) HDR() *target.RenderTarget { return c.hdr }

// Levels returns the bloom levels, largest first.
func (c *Chain) Levels() []*target.RenderTarget { return c.levels }

// ThresholdUpdates counts how often the threshold parameters were
// recomputed.
func (c *Chain) ThresholdUpdates() int { return c.thresholdUpdates }

// Ensure sizes the targets for a width x height frame. Targets are only
// recreated when the size or the level limits change, or when bloom is
// enabled and its levels do not exist yet. On failure every target is
// freed and the error wraps ErrPostProcessAllocationFailed.
func (c *Chain) Ensure(width, height uint32, s Settings) error {
	if c.released {
		return ErrChainReleased
	}
	s = s.normalized()
	wantLevels := s.BloomEnabled && len(c.levels) == 0 &&
		len(MipLevels(width, height, s.MipFloor, s.MaxMipLevels)) > 0
	if c.hdr != nil && width == c.width && height == c.height &&
		s.MipFloor == c.floor && s.MaxMipLevels == c.max && !wantLevels {
		return nil
	}

	c.free()
	if err := c.allocate(width, height, s); err != nil {
		c.free()
		slogger().Warn("postprocess: allocation failed", "chain", c.label, "width", width, "height", height, "error", err)
		return fmt.Errorf("%w: %w", ErrPostProcessAllocationFailed, err)
	}
	c.width, c.height = width, height
	c.floor, c.max = s.MipFloor, s.MaxMipLevels
	slogger().Debug("postprocess: targets allocated", "chain", c.label,
		"width", width, "height", height, "levels", len(c.levels))
	return nil
}

func (c *Chain) allocate(width, height uint32, s Settings) error {
	hdr, err := c.alloc.Allocate(target.Descriptor{
		Label:  c.label + "_hdr",
		Width:  width,
		Height: height,
		Format: target.HDRFormat,
	})
	if err != nil {
		return err
	}
	c.hdr = hdr

	if !s.BloomEnabled {
		return nil
	}
	for i, size := range MipLevels(width, height, s.MipFloor, s.MaxMipLevels) {
		level, err := c.alloc.Allocate(target.Descriptor{
			Label:  fmt.Sprintf("%s_bloom_%d", c.label, i),
			Width:  size.Width,
			Height: size.Height,
			Format: target.HDRFormat,
		})
		if err != nil {
			return err
		}
		c.levels = append(c.levels, level)
	}
	return nil
}

func (c *Chain) free() {
	for k, g := range c.groups {
		c.p.device.DestroyBindGroup(g)
		delete(c.groups, k)
	}
	for _, l := range c.levels {
		c.alloc.Free(l)
	}
	c.levels = nil
	c.alloc.Free(c.hdr)
	c.hdr = nil
	c.width, c.height = 0, 0
}

// Release frees every target and bind group. It is idempotent.
func (c *Chain) Release() {
	if c.released {
		return
	}
	c.released = true
	c.free()
}

func (c *Chain) source(id pipeline.ID, level int) (hal.BindGroup, error) {
	key := groupKey{pipeline: id, source: level}
	if g, ok := c.groups[key]; ok {
		return g, nil
	}
	src := c.hdr
	if level != sourceHDR {
		src = c.levels[level]
	}
	g, err := c.p.bindSource(id, src.View, fmt.Sprintf("%s_src_%d_%d", c.label, id, level))
	if err != nil {
		return nil, fmt.Errorf("%w: bind group: %w", ErrPostProcessAllocationFailed, err)
	}
	c.groups[key] = g
	return g, nil
}

func (c *Chain) thresholdParams(s BloomSettings) [4]float32 {
	in := [2]float32{s.Threshold, s.ThresholdSoftness}
	if !c.thresholdValid || in != c.thresholdIn {
		c.threshold = Threshold(s.Threshold, s.ThresholdSoftness)
		c.thresholdIn = in
		c.thresholdValid = true
		c.thresholdUpdates++
	}
	return c.threshold
}

// Run records bloom, when enabled and the frame is large enough for at
// least one level, and then tonemap from the HDR target into out. The
// HDR target must have been rendered as an attachment; Run leaves it in
// the same state. rec must be outside any pass.
func (c *Chain) Run(rec *pipeline.Recorder, out *target.RenderTarget, s Settings) error {
	if c.released {
		return ErrChainReleased
	}
	if c.hdr == nil {
		return ErrNoTargets
	}
	s = s.normalized()

	if err := rec.TransitionTexture(c.hdr, usageAttachment, usageSampled); err != nil {
		return err
	}
	if s.BloomEnabled && len(c.levels) > 0 {
		if err := c.bloom(rec, s.Bloom); err != nil {
			return err
		}
	}
	if err := c.tonemap(rec, out, s); err != nil {
		return err
	}
	return rec.TransitionTexture(c.hdr, usageSampled, usageAttachment)
}

// bloom expects the HDR target sampled and leaves it sampled.
func (c *Chain) bloom(rec *pipeline.Recorder, s BloomSettings) error {
	threshold := c.thresholdParams(s)
	block := newParams(bloomParams)
	block.f32("threshold", threshold[:]...)
	block.f32("viewport", 0, 0, 1, 1)
	block.f32("aspect", float32(c.width)/float32(c.height))
	block.u32("use_threshold", boolU32(s.Threshold > 0))
	push, err := block.bytes()
	if err != nil {
		return err
	}

	// Downsample: HDR -> level 0 with threshold and Karis average, then
	// level i-1 -> level i.
	for i, level := range c.levels {
		id, src := c.p.downsample, i-1
		if i == 0 {
			id, src = c.p.downsampleFirst, sourceHDR
		}
		group, err := c.source(id, src)
		if err != nil {
			return err
		}
		if err := c.pass(rec, fmt.Sprintf("bloom_downsample_%d", i), level, gputypes.LoadOpClear, id, push, group); err != nil {
			return err
		}
		if err := rec.TransitionTexture(level, usageAttachment, usageSampled); err != nil {
			return err
		}
	}

	// Upsample: level i -> level i-1 from the smallest, then level 0 onto
	// the HDR target.
	up := c.p.Upsample(s.Composite)
	maxMip := float32(len(c.levels) - 1)
	for i := len(c.levels) - 1; i >= 0; i-- {
		dst := c.hdr
		if i > 0 {
			dst = c.levels[i-1]
		}
		block.f32("mip_blend", s.BlendFactor(float32(i), maxMip))
		push, err := block.bytes()
		if err != nil {
			return err
		}

		group, err := c.source(up, i)
		if err != nil {
			return err
		}
		if err := rec.TransitionTexture(dst, usageSampled, usageAttachment); err != nil {
			return err
		}
		if err := c.pass(rec, fmt.Sprintf("bloom_upsample_%d", i), dst, gputypes.LoadOpLoad, up, push, group); err != nil {
			return err
		}
		if err := rec.TransitionTexture(dst, usageAttachment, usageSampled); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) tonemap(rec *pipeline.Recorder, out *target.RenderTarget, s Settings) error {
	id, err := c.p.Tonemap(out.Format)
	if err != nil {
		return err
	}
	group, err := c.source(id, sourceHDR)
	if err != nil {
		return err
	}

	g := s.Grading
	block := newParams(tonemapParams)
	block.u32("off", boolU32(g.Off))
	block.f32("exposure", g.Exposure)
	block.f32("gamma", g.Gamma)
	block.f32("pre_saturation", g.PreSaturation)
	block.f32("post_saturation", g.PostSaturation)
	block.u32("encode_srgb", boolU32(needsEncoding(out.Format)))
	block.u32("dither", boolU32(s.Dither))
	push, err := block.bytes()
	if err != nil {
		return err
	}

	return c.pass(rec, "tonemap", out, gputypes.LoadOpClear, id, push, group)
}

// params fills a push-constant block by field name and keeps the first
// error.
type params struct {
	block *pipeline.Block
	err   error
}

func newParams(layout pipeline.PushConstants) *params {
	return &params{block: pipeline.NewBlock(layout)}
}

func (p *params) f32(name string, v ...float32) {
	if p.err == nil {
		p.err = p.block.SetFloat32(name, v...)
	}
}

func (p *params) u32(name string, v ...uint32) {
	if p.err == nil {
		p.err = p.block.SetUint32(name, v...)
	}
}

func (p *params) bytes() ([]byte, error) {
	if p.err != nil {
		return nil, fmt.Errorf("postprocess: fill parameters: %w", p.err)
	}
	return p.block.Bytes(), nil
}

func (c *Chain) pass(rec *pipeline.Recorder, label string, dst *target.RenderTarget, load gputypes.LoadOp,
	id pipeline.ID, push []byte, group hal.BindGroup) error {
	if err := rec.BeginRenderPass(pipeline.RenderPassDesc{
		Label: label,
		Color: []pipeline.ColorAttachment{{Target: dst, Load: load}},
	}); err != nil {
		return err
	}
	err := c.p.reg.BindAndDispatch(rec, id, push, []hal.BindGroup{group}, pipeline.Draw{VertexCount: 3})
	if endErr := rec.End(); err == nil {
		err = endErr
	}
	return err
}

// needsEncoding reports whether the tonemap shader must apply the sRGB
// curve itself, i.e. the format stores encoded values without hardware
// conversion.
func needsEncoding(format gputypes.TextureFormat) bool {
	switch format {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm:
		return true
	default:
		return false
	}
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
