// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halsurface presents through a hal.Surface created from native
// window handles. Importing it registers the "hal" presenter backend;
// call Use once the device exists.
package halsurface

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/glass/surface"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

var (
	mu      sync.RWMutex
	current *binding
)

type binding struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
}

func init() {
	surface.Register("hal", 100, newPresenter, func() bool {
		mu.RLock()
		defer mu.RUnlock()
		return current != nil
	})
}

// Use makes the registered "hal" backend create surfaces on instance and
// configure them for device. Passing a nil instance disables the backend.
func Use(instance hal.Instance, device hal.Device, queue hal.Queue) {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		current = nil
		return
	}
	current = &binding{instance: instance, device: device, queue: queue}
}

// Factory returns a surface.Factory bound to instance and device without
// going through the registry.
func Factory(instance hal.Instance, device hal.Device, queue hal.Queue) surface.Factory {
	b := &binding{instance: instance, device: device, queue: queue}
	return b.create
}

func newPresenter(h surface.Handle) (surface.Presenter, error) {
	mu.RLock()
	b := current
	mu.RUnlock()
	if b == nil {
		return nil, errors.New("halsurface: no device bound, call Use first")
	}
	return b.create(h)
}

func (b *binding) create(h surface.Handle) (surface.Presenter, error) {
	s, err := b.instance.CreateSurface(h.Display, h.Window)
	if err != nil {
		return nil, fmt.Errorf("halsurface: create surface: %w", err)
	}
	return &Presenter{surface: s, device: b.device, queue: b.queue}, nil
}

// Presenter adapts a hal.Surface to surface.Presenter.
type Presenter struct {
	surface    hal.Surface
	device     hal.Device
	queue      hal.Queue
	configured bool
}

// Formats implements surface.Presenter.
func (p *Presenter) Formats() []gputypes.TextureFormat {
	return []gputypes.TextureFormat{
		gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatRGBA8Unorm,
	}
}

// Configure implements surface.Presenter.
func (p *Presenter) Configure(cfg surface.Config) error {
	err := p.surface.Configure(p.device, &hal.SurfaceConfiguration{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      cfg.Format,
		Usage:       cfg.Usage,
		PresentMode: presentMode(cfg.PresentMode),
		AlphaMode:   alphaMode(cfg.AlphaMode),
	})
	if err != nil {
		return mapError(err)
	}
	p.configured = true
	return nil
}

// Unconfigure implements surface.Presenter.
func (p *Presenter) Unconfigure() {
	if !p.configured {
		return
	}
	p.surface.Unconfigure(p.device)
	p.configured = false
}

// Acquire implements surface.Presenter.
func (p *Presenter) Acquire() (surface.Frame, error) {
	acquired, err := p.surface.AcquireTexture(nil)
	if err != nil {
		return surface.Frame{}, mapError(err)
	}
	view, err := p.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label: "surface_view",
	})
	if err != nil {
		p.surface.DiscardTexture(acquired.Texture)
		return surface.Frame{}, fmt.Errorf("halsurface: create view: %w", err)
	}
	return surface.Frame{
		Texture:    acquired.Texture,
		View:       view,
		Suboptimal: acquired.Suboptimal,
		Native:     acquired.Texture,
	}, nil
}

// Present implements surface.Presenter.
func (p *Presenter) Present(f surface.Frame) error {
	defer p.device.DestroyTextureView(f.View)
	tex, _ := f.Native.(hal.SurfaceTexture)
	if err := p.queue.Present(p.surface, tex, nil); err != nil {
		return mapError(err)
	}
	return nil
}

// Discard implements surface.Presenter.
func (p *Presenter) Discard(f surface.Frame) {
	p.device.DestroyTextureView(f.View)
	if tex, ok := f.Native.(hal.SurfaceTexture); ok {
		p.surface.DiscardTexture(tex)
	}
}

// Destroy implements surface.Presenter.
func (p *Presenter) Destroy() {
	p.Unconfigure()
	p.surface.Destroy()
}

func presentMode(m surface.PresentMode) hal.PresentMode {
	switch m {
	case surface.PresentModeMailbox:
		return hal.PresentModeMailbox
	case surface.PresentModeImmediate:
		return hal.PresentModeImmediate
	default:
		return hal.PresentModeFifo
	}
}

func alphaMode(m surface.AlphaMode) hal.CompositeAlphaMode {
	switch m {
	case surface.AlphaModePremultiplied:
		return hal.CompositeAlphaModePremultiplied
	case surface.AlphaModePostMultiplied:
		return hal.CompositeAlphaModeUnpremultiplied
	default:
		return hal.CompositeAlphaModeOpaque
	}
}

// mapError translates HAL surface errors into surface sentinels.
func mapError(err error) error {
	switch {
	case errors.Is(err, hal.ErrSurfaceLost):
		return fmt.Errorf("%w: %w", surface.ErrSurfaceLost, err)
	case errors.Is(err, hal.ErrSurfaceOutdated):
		return fmt.Errorf("%w: %w", surface.ErrOutdated, err)
	case errors.Is(err, hal.ErrTimeout):
		return fmt.Errorf("%w: %w", surface.ErrTimeout, err)
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("%w: %w", surface.ErrOutOfMemory, err)
	default:
		return err
	}
}
