// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
)

// Kind is the pipeline type.
type Kind uint8

const (
	KindRender Kind = iota
	KindCompute
)

func (k Kind) String() string {
	switch k {
	case KindRender:
		return "render"
	case KindCompute:
		return "compute"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MaxBindGroups is the number of bind groups a pipeline layout may use,
// including the group reserved for push constants.
const MaxBindGroups = 4

// Field is a named range of a push-constant block.
type Field struct {
	Name   string
	Offset uint32
	Size   uint32
}

// PushConstants declares the push-constant block of a pipeline.
//
// The block is bound at @group(N) @binding(0), N being the number of bind
// groups the pipeline declares, as a uniform buffer with a dynamic
// offset. Shaders declare it as var<uniform>.
type PushConstants struct {
	// Size is the exact byte size every block must have. Zero means the
	// pipeline takes no push constants.
	Size uint32

	// Fields optionally names ranges of the block.
	Fields []Field
}

// Field returns the field with the given name.
func (p PushConstants) Field(name string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (p PushConstants) validate(limit uint32) error {
	if p.Size%4 != 0 {
		return fmt.Errorf("%w: size %d is not a multiple of 4", ErrInvalidPushConstantLayout, p.Size)
	}
	if p.Size > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrLayoutTooLarge, p.Size, limit)
	}

	seen := make(map[string]bool, len(p.Fields))
	fields := make([]Field, len(p.Fields))
	copy(fields, p.Fields)
	for _, f := range fields {
		switch {
		case f.Name == "":
			return fmt.Errorf("%w: unnamed field at offset %d", ErrInvalidPushConstantLayout, f.Offset)
		case seen[f.Name]:
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidPushConstantLayout, f.Name)
		case f.Size == 0 || f.Size%4 != 0 || f.Offset%4 != 0:
			return fmt.Errorf("%w: field %q must be 4-byte aligned and sized", ErrInvalidPushConstantLayout, f.Name)
		case uint64(f.Offset)+uint64(f.Size) > uint64(p.Size):
			return fmt.Errorf("%w: field %q ends at %d, block is %d bytes",
				ErrInvalidPushConstantLayout, f.Name, f.Offset+f.Size, p.Size)
		}
		seen[f.Name] = true
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].Offset < fields[j].Offset })
	for i := 1; i < len(fields); i++ {
		prev := fields[i-1]
		if prev.Offset+prev.Size > fields[i].Offset {
			return fmt.Errorf("%w: fields %q and %q overlap", ErrInvalidPushConstantLayout, prev.Name, fields[i].Name)
		}
	}
	return nil
}

// ResourceType is the type of resource bound at one binding.
type ResourceType uint8

const (
	UniformBuffer ResourceType = iota + 1
	StorageBuffer
	ReadOnlyStorageBuffer
	SampledTexture
	UnfilterableTexture
	FilteringSampler
	NonFilteringSampler
)

// Binding is one entry of a bind group.
type Binding struct {
	Binding    uint32
	Visibility gputypes.ShaderStage
	Type       ResourceType
}

// BindGroup declares the layout of one bind group.
type BindGroup struct {
	Label   string
	Entries []Binding
}

func (g BindGroup) validate(index int) error {
	seen := make(map[uint32]bool, len(g.Entries))
	for _, e := range g.Entries {
		if seen[e.Binding] {
			return fmt.Errorf("%w: group %d declares binding %d twice", ErrBindingConflict, index, e.Binding)
		}
		seen[e.Binding] = true
		if e.Type < UniformBuffer || e.Type > NonFilteringSampler {
			return fmt.Errorf("%w: group %d binding %d has no resource type", ErrBindingConflict, index, e.Binding)
		}
		if e.Visibility == 0 {
			return fmt.Errorf("%w: group %d binding %d is not visible to any stage", ErrInvalidSpec, index, e.Binding)
		}
	}
	return nil
}

// layoutEntries converts the group to HAL layout entries.
func (g BindGroup) layoutEntries() []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(g.Entries))
	for _, e := range g.Entries {
		entry := gputypes.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: e.Visibility,
		}
		switch e.Type {
		case UniformBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		case StorageBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
		case ReadOnlyStorageBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
		case SampledTexture:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case UnfilterableTexture:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case FilteringSampler:
			entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
		case NonFilteringSampler:
			entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeNonFiltering}
		}
		entries = append(entries, entry)
	}
	return entries
}

// VertexState describes the vertex stage of a render pipeline.
type VertexState struct {
	EntryPoint string
	Buffers    []gputypes.VertexBufferLayout
}

// FragmentState describes the fragment stage of a render pipeline.
type FragmentState struct {
	EntryPoint string
	Targets    []gputypes.ColorTargetState
}

// LayoutSpec describes everything about a pipeline except its shader.
type LayoutSpec struct {
	Label string

	// Name optionally registers the pipeline for Lookup. Names are unique
	// within a registry.
	Name string

	PushConstants PushConstants
	BindGroups    []BindGroup

	// Render pipelines.
	Vertex      VertexState
	Fragment    FragmentState
	Primitive   gputypes.PrimitiveState
	SampleCount uint32

	// Compute pipelines.
	EntryPoint    string
	WorkgroupSize [3]uint32
}

// Validate checks the spec against the kind and a push-constant limit.
func (s *LayoutSpec) Validate(kind Kind, pushLimit uint32) error {
	if err := s.PushConstants.validate(pushLimit); err != nil {
		return err
	}

	maxGroups := MaxBindGroups
	if s.PushConstants.Size > 0 {
		maxGroups--
	}
	if len(s.BindGroups) > maxGroups {
		return fmt.Errorf("%w: %d bind groups, at most %d with this push-constant block",
			ErrBindingConflict, len(s.BindGroups), maxGroups)
	}
	for i, g := range s.BindGroups {
		if err := g.validate(i); err != nil {
			return err
		}
	}

	switch kind {
	case KindRender:
		if len(s.Fragment.Targets) == 0 {
			return fmt.Errorf("%w: render pipeline %q has no color targets", ErrInvalidSpec, s.Label)
		}
	case KindCompute:
		if s.WorkgroupSize[0] == 0 || s.WorkgroupSize[1] == 0 || s.WorkgroupSize[2] == 0 {
			return fmt.Errorf("%w: compute pipeline %q needs a workgroup size", ErrInvalidSpec, s.Label)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidSpec, kind)
	}
	return nil
}

func (s *LayoutSpec) withDefaults(kind Kind) LayoutSpec {
	out := *s
	if kind == KindRender {
		if out.Vertex.EntryPoint == "" {
			out.Vertex.EntryPoint = "vs_main"
		}
		if out.Fragment.EntryPoint == "" {
			out.Fragment.EntryPoint = "fs_main"
		}
		if out.SampleCount == 0 {
			out.SampleCount = 1
		}
	}
	if kind == KindCompute && out.EntryPoint == "" {
		out.EntryPoint = "main"
	}
	return out
}
