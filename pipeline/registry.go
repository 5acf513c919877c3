// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"fmt"
	"sync"

	"github.com/gogpu/glass/device"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ID identifies a registered pipeline. IDs are never reused.
type ID uint64

// Pipeline is an immutable compiled pipeline.
type Pipeline struct {
	id    ID
	kind  Kind
	name  string
	label string

	push          PushConstants
	workgroupSize [3]uint32

	module       hal.ShaderModule
	groupLayouts []hal.BindGroupLayout
	layout       hal.PipelineLayout
	render       hal.RenderPipeline
	compute      hal.ComputePipeline
}

// ID returns the registry key of the pipeline.
func (p *Pipeline) ID() ID { return p.id }

// Kind returns whether this is a render or compute pipeline.
func (p *Pipeline) Kind() Kind { return p.kind }

// Name returns the lookup name, possibly empty.
func (p *Pipeline) Name() string { return p.name }

// Label returns the debug label.
func (p *Pipeline) Label() string { return p.label }

// PushConstants returns the declared push-constant block.
func (p *Pipeline) PushConstants() PushConstants { return p.push }

// WorkgroupSize returns the compute workgroup size.
func (p *Pipeline) WorkgroupSize() [3]uint32 { return p.workgroupSize }

// BindGroups is the number of bind groups the caller supplies, excluding
// the push-constant group.
func (p *Pipeline) BindGroups() int { return len(p.groupLayouts) }

// BindGroupLayout returns the layout of user bind group i, for creating
// bind groups that match the pipeline.
func (p *Pipeline) BindGroupLayout(i int) hal.BindGroupLayout {
	if i < 0 || i >= len(p.groupLayouts) {
		return nil
	}
	return p.groupLayouts[i]
}

func (p *Pipeline) destroy(dev hal.Device) {
	if p.render != nil {
		dev.DestroyRenderPipeline(p.render)
	}
	if p.compute != nil {
		dev.DestroyComputePipeline(p.compute)
	}
	if p.layout != nil {
		dev.DestroyPipelineLayout(p.layout)
	}
	for _, l := range p.groupLayouts {
		if l != nil {
			dev.DestroyBindGroupLayout(l)
		}
	}
	if p.module != nil {
		dev.DestroyShaderModule(p.module)
	}
	p.render, p.compute, p.layout, p.groupLayouts, p.module = nil, nil, nil, nil, nil
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	validateShaders bool
	ringChunkSlots  uint32
}

// WithShaderValidation compiles WGSL through naga before handing it to
// the device, so shader errors surface at Register.
func WithShaderValidation(enabled bool) RegistryOption {
	return func(o *registryOptions) { o.validateShaders = enabled }
}

// WithRingChunkSlots sets how many push-constant slots each push ring
// chunk holds.
func WithRingChunkSlots(n uint32) RegistryOption {
	return func(o *registryOptions) { o.ringChunkSlots = n }
}

// Registry creates, owns and destroys pipelines. It also holds the
// per-window request queues drained by the frame loop.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	ctx     *device.Context
	device  hal.Device
	opts    registryOptions
	release func()

	pushLimit  uint32
	slot       uint32
	pushLayout hal.BindGroupLayout

	pipelines map[ID]*Pipeline
	names     map[string]ID
	nextID    ID

	queues map[uint64]*requestQueue
	closed bool
}

// NewRegistry creates an empty registry on ctx.
func NewRegistry(ctx *device.Context, opts ...RegistryOption) (*Registry, error) {
	o := registryOptions{ringChunkSlots: DefaultRingChunkSlots}
	for _, opt := range opts {
		opt(&o)
	}

	limit := ctx.MaxPushConstantSize()
	slot := alignUp(limit, device.PushConstantAlignment)
	if slot == 0 {
		slot = device.PushConstantAlignment
	}

	dev := ctx.Device()
	pushLayout, err := dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "push_constants",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStagesAll,
			Buffer: &gputypes.BufferBindingLayout{
				Type:             gputypes.BufferBindingTypeUniform,
				HasDynamicOffset: true,
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create push-constant layout: %w", err)
	}

	return &Registry{
		ctx:        ctx,
		device:     dev,
		opts:       o,
		release:    ctx.Retain("pipeline"),
		pushLimit:  limit,
		slot:       slot,
		pushLayout: pushLayout,
		pipelines:  make(map[ID]*Pipeline),
		names:      make(map[string]ID),
		queues:     make(map[uint64]*requestQueue),
	}, nil
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) / align * align
}

// PushConstantLimit is the largest push-constant block Register accepts.
func (r *Registry) PushConstantLimit() uint32 { return r.pushLimit }

// NewPushRing creates a push-constant ring bound to this registry's
// push-constant layout. Each window owns one.
func (r *Registry) NewPushRing(label string) *PushRing {
	return newPushRing(r.device, r.ctx.Queue(), r.pushLayout, r.slot, r.opts.ringChunkSlots, label)
}

// Register validates spec and creates every GPU object of the pipeline.
// Nothing is left behind when it fails.
func (r *Registry) Register(kind Kind, shader Shader, spec LayoutSpec) (ID, error) {
	if err := spec.Validate(kind, r.pushLimit); err != nil {
		return 0, err
	}
	spec = spec.withDefaults(kind)
	if shader.Label == "" {
		shader.Label = spec.Label
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrRegistryClosed
	}
	if spec.Name != "" {
		if _, taken := r.names[spec.Name]; taken {
			return 0, fmt.Errorf("%w: %q", ErrDuplicateName, spec.Name)
		}
	}

	p, err := r.build(kind, shader, &spec)
	if err != nil {
		return 0, err
	}

	r.nextID++
	p.id = r.nextID
	r.pipelines[p.id] = p
	if p.name != "" {
		r.names[p.name] = p.id
	}
	slogger().Debug("pipeline: registered", "id", p.id, "kind", kind, "label", p.label)
	return p.id, nil
}

func (r *Registry) build(kind Kind, shader Shader, spec *LayoutSpec) (p *Pipeline, err error) {
	p = &Pipeline{
		kind:          kind,
		name:          spec.Name,
		label:         spec.Label,
		push:          spec.PushConstants,
		workgroupSize: spec.WorkgroupSize,
	}
	defer func() {
		if err != nil {
			p.destroy(r.device)
		}
	}()

	p.module, err = createModule(r.device, shader, r.opts.validateShaders)
	if err != nil {
		return nil, err
	}

	layouts := make([]hal.BindGroupLayout, 0, len(spec.BindGroups)+1)
	for i, g := range spec.BindGroups {
		label := g.Label
		if label == "" {
			label = fmt.Sprintf("%s_group_%d", spec.Label, i)
		}
		l, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   label,
			Entries: g.layoutEntries(),
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: create bind group layout %d: %w", i, err)
		}
		p.groupLayouts = append(p.groupLayouts, l)
		layouts = append(layouts, l)
	}
	if p.push.Size > 0 {
		layouts = append(layouts, r.pushLayout)
	}

	p.layout, err = r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            spec.Label + "_layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create pipeline layout: %w", err)
	}

	switch kind {
	case KindRender:
		p.render, err = r.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
			Label:  spec.Label,
			Layout: p.layout,
			Vertex: hal.VertexState{
				Module:     p.module,
				EntryPoint: spec.Vertex.EntryPoint,
				Buffers:    spec.Vertex.Buffers,
			},
			Primitive: spec.Primitive,
			Multisample: gputypes.MultisampleState{
				Count: spec.SampleCount,
				Mask:  0xFFFFFFFF,
			},
			Fragment: &hal.FragmentState{
				Module:     p.module,
				EntryPoint: spec.Fragment.EntryPoint,
				Targets:    spec.Fragment.Targets,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: create render pipeline %q: %w", spec.Label, err)
		}
	case KindCompute:
		p.compute, err = r.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  spec.Label,
			Layout: p.layout,
			Compute: hal.ComputeState{
				Module:     p.module,
				EntryPoint: spec.EntryPoint,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: create compute pipeline %q: %w", spec.Label, err)
		}
	}
	return p, nil
}

// Unregister destroys the pipeline and frees its name.
func (r *Registry) Unregister(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pipelines[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPipeline, id)
	}
	delete(r.pipelines, id)
	if p.name != "" {
		delete(r.names, p.name)
	}
	p.destroy(r.device)
	slogger().Debug("pipeline: unregistered", "id", id, "label", p.label)
	return nil
}

// Get returns the pipeline with the given ID.
func (r *Registry) Get(id ID) (*Pipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPipeline, id)
	}
	return p, nil
}

// Lookup returns the ID registered under name.
func (r *Registry) Lookup(name string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.names[name]
	return id, ok
}

// Len returns the number of registered pipelines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pipelines)
}

// PushConstantSize returns the exact block size the pipeline expects.
func (r *Registry) PushConstantSize(id ID) (uint32, error) {
	p, err := r.Get(id)
	if err != nil {
		return 0, err
	}
	return p.push.Size, nil
}

// Close destroys every pipeline and the push-constant layout. Push rings
// created from the registry must be destroyed first. Close is idempotent.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, p := range r.pipelines {
		p.destroy(r.device)
		delete(r.pipelines, id)
	}
	clear(r.names)
	clear(r.queues)
	r.device.DestroyBindGroupLayout(r.pushLayout)
	r.release()
	slogger().Info("pipeline: registry closed")
}
