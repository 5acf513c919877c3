// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

import (
	"testing"

	"github.com/gogpu/glass/config"
	"github.com/gogpu/glass/device"
	"github.com/gogpu/glass/surface"
)

func TestWithConfig(t *testing.T) {
	cfg := config.Performance()
	cfg.Window.Width, cfg.Window.Height = 320, 200
	cfg.Window.ClearColor = [4]float64{0.25, 0.5, 0.75, 1}

	o := defaultOptions()
	WithConfig(cfg)(&o)

	if o.deviceConfig == nil || o.deviceConfig.MaxPushConstantSize != cfg.Device.MaxPushConstantSize {
		t.Errorf("device config = %+v", o.deviceConfig)
	}
	if o.targetBudget != cfg.TargetBudget() {
		t.Errorf("targetBudget = %d, want %d", o.targetBudget, cfg.TargetBudget())
	}
	if o.window.Size != (surface.Size{Width: 320, Height: 200}) {
		t.Errorf("window size = %v", o.window.Size)
	}
	if o.window.PresentMode != surface.PresentModeImmediate {
		t.Errorf("present mode = %v, want immediate", o.window.PresentMode)
	}
	if c := o.window.ClearColor; c.R != 0.25 || c.G != 0.5 || c.B != 0.75 || c.A != 1 {
		t.Errorf("clear color = %+v", c)
	}
	if o.post.Dither {
		t.Error("performance preset should disable dither")
	}
}

func TestNewWithDeviceOptions(t *testing.T) {
	g, err := New(nil,
		WithDeviceOptions(device.WithBackend(device.BackendNoop), device.WithMaxPushConstantSize(device.DefaultMaxPushConstantSize)),
		WithWindowless(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer g.Close()

	ctx := g.Context()
	if got := ctx.Device().MaxPushConstantSize(); got != device.DefaultMaxPushConstantSize {
		t.Errorf("MaxPushConstantSize = %d", got)
	}
	if ctx.PostProcess() == nil || ctx.Allocator() == nil || ctx.Registry() == nil {
		t.Fatal("missing shared objects")
	}
	if got := ctx.Registry().Len(); got != 4 {
		t.Errorf("registered pipelines = %d, want the 4 bloom pipelines", got)
	}
	if err := g.Tick(); err != nil {
		t.Errorf("Tick without windows: %v", err)
	}
	g.Close()
	g.Close()
	if _, err := ctx.OpenWindow(DefaultWindowConfig()); err != ErrClosed {
		t.Errorf("OpenWindow after Close = %v, want ErrClosed", err)
	}
}

func TestWithConfigDeviceOverride(t *testing.T) {
	cfg := config.Default()
	g, err := New(nil, WithConfig(cfg), WithDeviceOptions(device.WithBackend(device.BackendNoop)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer g.Close()
	if got := g.Context().Device().Config().Backend; got != device.BackendNoop {
		t.Errorf("backend = %v, want noop", got)
	}
	if got := g.Context().DefaultWindow().Size; got.Width != cfg.Window.Width {
		t.Errorf("default window = %v", got)
	}
}
