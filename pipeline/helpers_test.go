// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gogpu/glass/device"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

const testWGSL = `
@vertex fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
@fragment fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func newNoopContext(t *testing.T) *device.Context {
	t.Helper()
	c, err := device.New(device.WithBackend(device.BackendNoop))
	if err != nil {
		t.Fatalf("device.New(noop): %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func newTestRegistry(t *testing.T, opts ...RegistryOption) (*Registry, *device.Context) {
	t.Helper()
	c := newNoopContext(t)
	r, err := NewRegistry(c, opts...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(r.Close)
	return r, c
}

func renderSpec(label string, push uint32, groups ...BindGroup) LayoutSpec {
	return LayoutSpec{
		Label:         label,
		PushConstants: PushConstants{Size: push},
		BindGroups:    groups,
		Fragment: FragmentState{Targets: []gputypes.ColorTargetState{{
			Format:    gputypes.TextureFormatRGBA16Float,
			WriteMask: gputypes.ColorWriteMaskAll,
		}}},
	}
}

func computeSpec(label string, push uint32, groups ...BindGroup) LayoutSpec {
	return LayoutSpec{
		Label:         label,
		PushConstants: PushConstants{Size: push},
		BindGroups:    groups,
		WorkgroupSize: [3]uint32{8, 8, 1},
	}
}

func uniformGroup() BindGroup {
	return BindGroup{Entries: []Binding{{
		Binding:    0,
		Visibility: gputypes.ShaderStageFragment | gputypes.ShaderStageCompute,
		Type:       UniformBuffer,
	}}}
}

func testShader() Shader { return Shader{Label: "test", WGSL: testWGSL} }

// countingDevice counts live HAL objects and can fail chosen creations.
type countingDevice struct {
	hal.Device

	mu   sync.Mutex
	live map[string]int
	fail map[string]bool
}

var errInjected = errors.New("injected failure")

func newCountingDevice(inner hal.Device) *countingDevice {
	return &countingDevice{Device: inner, live: map[string]int{}, fail: map[string]bool{}}
}

func (d *countingDevice) create(kind string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[kind] {
		return fmt.Errorf("%s: %w", kind, errInjected)
	}
	d.live[kind]++
	return nil
}

func (d *countingDevice) destroy(kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.live[kind]--
}

func (d *countingDevice) total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, v := range d.live {
		n += v
	}
	return n
}

func (d *countingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if err := d.create("module"); err != nil {
		return nil, err
	}
	return d.Device.CreateShaderModule(desc)
}

func (d *countingDevice) DestroyShaderModule(m hal.ShaderModule) {
	d.destroy("module")
	d.Device.DestroyShaderModule(m)
}

func (d *countingDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	if err := d.create("bgl"); err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroupLayout(desc)
}

func (d *countingDevice) DestroyBindGroupLayout(l hal.BindGroupLayout) {
	d.destroy("bgl")
	d.Device.DestroyBindGroupLayout(l)
}

func (d *countingDevice) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	if err := d.create("layout"); err != nil {
		return nil, err
	}
	return d.Device.CreatePipelineLayout(desc)
}

func (d *countingDevice) DestroyPipelineLayout(l hal.PipelineLayout) {
	d.destroy("layout")
	d.Device.DestroyPipelineLayout(l)
}

func (d *countingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if err := d.create("render"); err != nil {
		return nil, err
	}
	return d.Device.CreateRenderPipeline(desc)
}

func (d *countingDevice) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.destroy("render")
	d.Device.DestroyRenderPipeline(p)
}

func (d *countingDevice) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	if err := d.create("compute"); err != nil {
		return nil, err
	}
	return d.Device.CreateComputePipeline(desc)
}

func (d *countingDevice) DestroyComputePipeline(p hal.ComputePipeline) {
	d.destroy("compute")
	d.Device.DestroyComputePipeline(p)
}

func (d *countingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if err := d.create("buffer"); err != nil {
		return nil, err
	}
	return d.Device.CreateBuffer(desc)
}

func (d *countingDevice) DestroyBuffer(b hal.Buffer) {
	d.destroy("buffer")
	d.Device.DestroyBuffer(b)
}

func (d *countingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if err := d.create("bg"); err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroup(desc)
}

func (d *countingDevice) DestroyBindGroup(g hal.BindGroup) {
	d.destroy("bg")
	d.Device.DestroyBindGroup(g)
}

func (d *countingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &tracingEncoder{CommandEncoder: enc, trace: &trace{}}, nil
}

// newCountingRegistry builds a registry over a countingDevice.
func newCountingRegistry(t *testing.T, opts ...RegistryOption) (*Registry, *countingDevice) {
	t.Helper()
	owner := newNoopContext(t)
	dev := newCountingDevice(owner.Device())
	c, err := device.Wrap(dev, owner.Queue(), device.Config{})
	if err != nil {
		t.Fatalf("device.Wrap: %v", err)
	}
	r, err := NewRegistry(c, opts...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(r.Close)
	return r, dev
}

// trace records pass commands in order.
type trace struct {
	mu    sync.Mutex
	calls []string
}

func (t *trace) add(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, fmt.Sprintf(format, args...))
}

func (t *trace) get() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

type tracingEncoder struct {
	hal.CommandEncoder
	trace *trace
}

func (e *tracingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	e.trace.add("BeginRenderPass(%s)", desc.Label)
	return &tracingRenderPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), trace: e.trace}
}

func (e *tracingEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	e.trace.add("BeginComputePass(%s)", desc.Label)
	return &tracingComputePass{ComputePassEncoder: e.CommandEncoder.BeginComputePass(desc), trace: e.trace}
}

func (e *tracingEncoder) TransitionTextures(barriers []hal.TextureBarrier) {
	e.trace.add("TransitionTextures(%d)", len(barriers))
	e.CommandEncoder.TransitionTextures(barriers)
}

type tracingRenderPass struct {
	hal.RenderPassEncoder
	trace *trace
}

func (p *tracingRenderPass) SetPipeline(pl hal.RenderPipeline) {
	p.trace.add("SetPipeline")
	p.RenderPassEncoder.SetPipeline(pl)
}

func (p *tracingRenderPass) SetBindGroup(i uint32, g hal.BindGroup, offsets []uint32) {
	p.trace.add("SetBindGroup(%d,%v)", i, offsets)
	p.RenderPassEncoder.SetBindGroup(i, g, offsets)
}

func (p *tracingRenderPass) Draw(vc, ic, fv, fi uint32) {
	p.trace.add("Draw(%d,%d)", vc, ic)
	p.RenderPassEncoder.Draw(vc, ic, fv, fi)
}

func (p *tracingRenderPass) DrawIndexed(n, ic, fi uint32, bv int32, fin uint32) {
	p.trace.add("DrawIndexed(%d,%d)", n, ic)
	p.RenderPassEncoder.DrawIndexed(n, ic, fi, bv, fin)
}

func (p *tracingRenderPass) End() {
	p.trace.add("EndRender")
	p.RenderPassEncoder.End()
}

type tracingComputePass struct {
	hal.ComputePassEncoder
	trace *trace
}

func (p *tracingComputePass) SetPipeline(pl hal.ComputePipeline) {
	p.trace.add("SetPipeline")
	p.ComputePassEncoder.SetPipeline(pl)
}

func (p *tracingComputePass) SetBindGroup(i uint32, g hal.BindGroup, offsets []uint32) {
	p.trace.add("SetBindGroup(%d,%v)", i, offsets)
	p.ComputePassEncoder.SetBindGroup(i, g, offsets)
}

func (p *tracingComputePass) Dispatch(x, y, z uint32) {
	p.trace.add("Dispatch(%d,%d,%d)", x, y, z)
	p.ComputePassEncoder.Dispatch(x, y, z)
}

func (p *tracingComputePass) End() {
	p.trace.add("EndCompute")
	p.ComputePassEncoder.End()
}

// recorderTrace returns the trace of a recorder opened on a countingDevice.
func recorderTrace(t *testing.T, rec *Recorder) *trace {
	t.Helper()
	enc, ok := rec.encoder.(*tracingEncoder)
	if !ok {
		t.Fatal("recorder was not opened on a countingDevice")
	}
	return enc.trace
}
