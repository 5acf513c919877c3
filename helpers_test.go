// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

import (
	"sync"
	"testing"

	"github.com/gogpu/glass/device"
	"github.com/gogpu/glass/surface"
	"github.com/gogpu/glass/surface/surfacetest"
	"github.com/gogpu/wgpu/hal"
)

// recordingDevice logs the label of every render and compute pass and
// counts compute dispatches.
type recordingDevice struct {
	hal.Device

	mu         sync.Mutex
	passes     []string
	dispatches int
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &recordingEncoder{CommandEncoder: enc, dev: d}, nil
}

func (d *recordingDevice) add(label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.passes = append(d.passes, label)
}

func (d *recordingDevice) dispatched() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatches
}

func (d *recordingDevice) take() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.passes
	d.passes = nil
	return out
}

type recordingEncoder struct {
	hal.CommandEncoder
	dev *recordingDevice
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	e.dev.add(desc.Label)
	return e.CommandEncoder.BeginRenderPass(desc)
}

func (e *recordingEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	e.dev.add(desc.Label)
	return &countingPass{ComputePassEncoder: e.CommandEncoder.BeginComputePass(desc), dev: e.dev}
}

type countingPass struct {
	hal.ComputePassEncoder
	dev *recordingDevice
}

func (p *countingPass) Dispatch(x, y, z uint32) {
	p.dev.mu.Lock()
	p.dev.dispatches++
	p.dev.mu.Unlock()
	p.ComputePassEncoder.Dispatch(x, y, z)
}

// lostQueue fails every submission with a lost device.
type lostQueue struct {
	hal.Queue
}

func (lostQueue) Submit([]hal.CommandBuffer) (uint64, error) { return 0, hal.ErrDeviceLost }

type fixture struct {
	g   *Glass
	dev *recordingDevice
}

func newFixture(t *testing.T, app App, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithQueue(t, app, nil, opts...)
}

func newFixtureWithQueue(t *testing.T, app App, queue hal.Queue, opts ...Option) *fixture {
	t.Helper()
	owner, err := device.New(device.WithBackend(device.BackendNoop))
	if err != nil {
		t.Fatalf("device.New: %v", err)
	}
	t.Cleanup(owner.Close)

	if queue == nil {
		queue = owner.Queue()
	}
	dev := &recordingDevice{Device: owner.Device()}
	ctx, err := device.Wrap(dev, queue, owner.Config())
	if err != nil {
		t.Fatalf("device.Wrap: %v", err)
	}

	g, err := New(app, append([]Option{WithDeviceContext(ctx)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(g.Close)
	return &fixture{g: g, dev: dev}
}

// open binds a headless window of the given size.
func (f *fixture) open(t *testing.T, id WindowID, w, h uint32) *surfacetest.Presenter {
	t.Helper()
	p := surfacetest.New(f.dev)
	err := f.g.HandleEvent(WindowOpened{ID: id, Size: surface.Size{Width: w, Height: h}, Presenter: p})
	if err != nil {
		t.Fatalf("WindowOpened(%d): %v", id, err)
	}
	return p
}

func (f *fixture) tick(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := f.g.Tick(); err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
	}
}

// hooks counts hook calls and runs optional callbacks.
type hooks struct {
	BaseApp

	starts, updates, ends, endOfFrames int
	inputs                             []Event
	rendered                           []WindowID
	presented                          []WindowID

	onStart  func(*Context) error
	onUpdate func(*Context)
	onRender func(*Context, *RenderData) error
}

func (h *hooks) Start(ctx *Context) error {
	h.starts++
	if h.onStart != nil {
		return h.onStart(ctx)
	}
	return nil
}

func (h *hooks) Input(_ *Context, ev Event) { h.inputs = append(h.inputs, ev) }

func (h *hooks) Update(ctx *Context) {
	h.updates++
	if h.onUpdate != nil {
		h.onUpdate(ctx)
	}
}

func (h *hooks) Render(ctx *Context, rd *RenderData) error {
	h.rendered = append(h.rendered, rd.Window())
	if h.onRender != nil {
		return h.onRender(ctx, rd)
	}
	return nil
}

func (h *hooks) AfterRender(_ *Context, id WindowID) { h.presented = append(h.presented, id) }
func (h *hooks) EndOfFrame(*Context)                 { h.endOfFrames++ }
func (h *hooks) End(*Context)                        { h.ends++ }
