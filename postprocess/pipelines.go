// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package postprocess

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/gogpu/glass/device"
	"github.com/gogpu/glass/pipeline"
	"github.com/gogpu/glass/target"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/bloom.wgsl
var bloomWGSL string

//go:embed shaders/tonemap.wgsl
var tonemapWGSL string

// BloomWGSL returns the bloom shader source.
func BloomWGSL() string { return bloomWGSL }

// TonemapWGSL returns the tonemap shader source.
func TonemapWGSL() string { return tonemapWGSL }

// bloomParams mirrors BloomParams in bloom.wgsl.
var bloomParams = pipeline.PushConstants{
	Size: 48,
	Fields: []pipeline.Field{
		{Name: "threshold", Offset: 0, Size: 16},
		{Name: "viewport", Offset: 16, Size: 16},
		{Name: "aspect", Offset: 32, Size: 4},
		{Name: "use_threshold", Offset: 36, Size: 4},
		{Name: "mip_blend", Offset: 40, Size: 4},
	},
}

// tonemapParams mirrors TonemapParams in tonemap.wgsl.
var tonemapParams = pipeline.PushConstants{
	Size: 32,
	Fields: []pipeline.Field{
		{Name: "off", Offset: 0, Size: 4},
		{Name: "exposure", Offset: 4, Size: 4},
		{Name: "gamma", Offset: 8, Size: 4},
		{Name: "pre_saturation", Offset: 12, Size: 4},
		{Name: "post_saturation", Offset: 16, Size: 4},
		{Name: "encode_srgb", Offset: 20, Size: 4},
		{Name: "dither", Offset: 24, Size: 4},
	},
}

// sourceGroup is group 0 of every post-process pipeline: the texture
// being read and the linear clamp sampler.
var sourceGroup = pipeline.BindGroup{
	Label: "postprocess_source",
	Entries: []pipeline.Binding{
		{Binding: 0, Visibility: gputypes.ShaderStageFragment, Type: pipeline.SampledTexture},
		{Binding: 1, Visibility: gputypes.ShaderStageFragment, Type: pipeline.FilteringSampler},
	},
}

// Pipelines holds the post-process pipelines shared by every window's
// Chain. Tonemap pipelines are created on first use per output format.
//
// Pipelines is safe for concurrent use.
type Pipelines struct {
	mu sync.Mutex

	reg     *pipeline.Registry
	device  hal.Device
	sampler hal.Sampler
	release func()

	downsampleFirst pipeline.ID
	downsample      pipeline.ID
	upsample        [2]pipeline.ID // by CompositeMode
	tonemap         map[gputypes.TextureFormat]pipeline.ID

	closed bool
}

// NewPipelines registers the bloom pipelines in reg. reg must have a
// push-constant limit of at least 48 bytes.
func NewPipelines(ctx *device.Context, reg *pipeline.Registry) (_ *Pipelines, err error) {
	p := &Pipelines{
		reg:     reg,
		device:  ctx.Device(),
		tonemap: make(map[gputypes.TextureFormat]pipeline.ID),
	}
	defer func() {
		if err != nil {
			p.destroy()
		}
	}()

	p.sampler, err = p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "postprocess_linear_clamp",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("postprocess: create sampler: %w", err)
	}

	if p.downsampleFirst, err = p.registerBloom("bloom_downsample_first", "downsample_first", nil); err != nil {
		return nil, err
	}
	if p.downsample, err = p.registerBloom("bloom_downsample", "downsample", nil); err != nil {
		return nil, err
	}
	for _, mode := range []CompositeMode{EnergyConserving, Additive} {
		blend := compositeBlend(mode)
		if p.upsample[mode], err = p.registerBloom("bloom_upsample_"+mode.String(), "upsample", &blend); err != nil {
			return nil, err
		}
	}

	p.release = ctx.Retain("postprocess")
	slogger().Info("postprocess: pipelines registered")
	return p, nil
}

// compositeBlend blends an upsample output (rgb*f, f) onto the level
// below. The destination alpha is kept.
func compositeBlend(mode CompositeMode) gputypes.BlendState {
	dst := gputypes.BlendFactorOneMinusSrcAlpha
	if mode == Additive {
		dst = gputypes.BlendFactorOne
	}
	return gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: dst,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorZero,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

// HDRTargets returns the color targets of a render pipeline drawing
// into an HDR target, with an optional blend state.
func HDRTargets(blend *gputypes.BlendState) []gputypes.ColorTargetState {
	return []gputypes.ColorTargetState{{
		Format:    target.HDRFormat,
		Blend:     blend,
		WriteMask: gputypes.ColorWriteMaskAll,
	}}
}

func (p *Pipelines) registerBloom(label, entry string, blend *gputypes.BlendState) (pipeline.ID, error) {
	id, err := p.reg.Register(pipeline.KindRender,
		pipeline.Shader{Label: "bloom", WGSL: bloomWGSL},
		pipeline.LayoutSpec{
			Label:         label,
			PushConstants: bloomParams,
			BindGroups:    []pipeline.BindGroup{sourceGroup},
			Fragment: pipeline.FragmentState{
				EntryPoint: entry,
				Targets:    HDRTargets(blend),
			},
		})
	if err != nil {
		return 0, fmt.Errorf("postprocess: register %s: %w", label, err)
	}
	return id, nil
}

// Tonemap returns the tonemap pipeline writing format, registering it on
// first use.
func (p *Pipelines) Tonemap(format gputypes.TextureFormat) (pipeline.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrChainReleased
	}
	if id, ok := p.tonemap[format]; ok {
		return id, nil
	}
	id, err := p.reg.Register(pipeline.KindRender,
		pipeline.Shader{Label: "tonemap", WGSL: tonemapWGSL},
		pipeline.LayoutSpec{
			Label:         fmt.Sprintf("tonemap_%d", format),
			PushConstants: tonemapParams,
			BindGroups:    []pipeline.BindGroup{sourceGroup},
			Fragment: pipeline.FragmentState{
				Targets: []gputypes.ColorTargetState{{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				}},
			},
		})
	if err != nil {
		return 0, fmt.Errorf("postprocess: register tonemap: %w", err)
	}
	p.tonemap[format] = id
	return id, nil
}

// Upsample returns the upsample pipeline for mode.
func (p *Pipelines) Upsample(mode CompositeMode) pipeline.ID {
	if mode != Additive {
		mode = EnergyConserving
	}
	return p.upsample[mode]
}

// Registry returns the registry the pipelines live in.
func (p *Pipelines) Registry() *pipeline.Registry { return p.reg }

// bindSource creates a group-0 bind group for pipeline id reading view.
func (p *Pipelines) bindSource(id pipeline.ID, view hal.TextureView, label string) (hal.BindGroup, error) {
	pl, err := p.reg.Get(id)
	if err != nil {
		return nil, err
	}
	return p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: pl.BindGroupLayout(0),
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
}

func (p *Pipelines) destroy() {
	ids := []pipeline.ID{p.downsampleFirst, p.downsample, p.upsample[0], p.upsample[1]}
	for _, id := range p.tonemap {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if id != 0 {
			_ = p.reg.Unregister(id)
		}
	}
	clear(p.tonemap)
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
}

// Close unregisters every post-process pipeline. Chains created from p
// must be released first. Close is idempotent.
func (p *Pipelines) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.destroy()
	if p.release != nil {
		p.release()
	}
	slogger().Info("postprocess: pipelines closed")
}
