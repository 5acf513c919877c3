// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halsurface

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/glass/surface"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func openNoop(t *testing.T) (hal.Instance, hal.Device, hal.Queue) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return instance, open.Device, open.Queue
}

func TestMapError(t *testing.T) {
	other := errors.New("other")
	tests := []struct {
		in   error
		want error
	}{
		{hal.ErrSurfaceLost, surface.ErrSurfaceLost},
		{fmt.Errorf("acquire: %w", hal.ErrSurfaceOutdated), surface.ErrOutdated},
		{hal.ErrTimeout, surface.ErrTimeout},
		{hal.ErrDeviceOutOfMemory, surface.ErrOutOfMemory},
		{other, other},
	}
	for _, tt := range tests {
		got := mapError(tt.in)
		if !errors.Is(got, tt.want) {
			t.Errorf("mapError(%v) = %v, want %v in chain", tt.in, got, tt.want)
		}
		if !errors.Is(got, tt.in) {
			t.Errorf("mapError(%v) dropped the original error", tt.in)
		}
	}
}

func TestBackendAvailability(t *testing.T) {
	Use(nil, nil, nil)
	for _, name := range surface.Available() {
		if name == "hal" {
			t.Fatal("hal backend must be unavailable before Use")
		}
	}
	if _, err := surface.NewPresenterByName("hal", surface.Handle{}); err == nil {
		t.Fatal("expected error from unavailable backend")
	}
}

func TestModeMapping(t *testing.T) {
	if presentMode(surface.PresentModeFifo) != hal.PresentModeFifo {
		t.Error("fifo")
	}
	if presentMode(surface.PresentModeImmediate) != hal.PresentModeImmediate {
		t.Error("immediate")
	}
	if alphaMode(surface.AlphaModeOpaque) != hal.CompositeAlphaModeOpaque {
		t.Error("opaque")
	}
	if alphaMode(surface.AlphaModePremultiplied) != hal.CompositeAlphaModePremultiplied {
		t.Error("premultiplied")
	}
}

func TestPresenterFrameCycle(t *testing.T) {
	instance, device, queue := openNoop(t)
	Use(instance, device, queue)
	defer Use(nil, nil, nil)

	p, err := surface.NewPresenterByName("hal", surface.Handle{Window: 1})
	if err != nil {
		t.Fatalf("NewPresenterByName: %v", err)
	}
	defer p.Destroy()

	err = p.Configure(surface.Config{
		Format: gputypes.TextureFormatBGRA8UnormSrgb,
		Width:  640,
		Height: 480,
		Usage:  gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	f, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if f.Texture == nil || f.View == nil {
		t.Fatal("acquired frame must carry a texture and a view")
	}
	if err := p.Present(f); err != nil {
		t.Errorf("Present: %v", err)
	}

	f, err = p.Acquire()
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	p.Discard(f)
}

func TestFactoryBypassesRegistry(t *testing.T) {
	instance, device, queue := openNoop(t)
	Use(nil, nil, nil)

	p, err := Factory(instance, device, queue)(surface.Handle{Window: 7})
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	p.Destroy()
}
