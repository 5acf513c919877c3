// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surfacetest provides a headless Presenter. It renders into an
// offscreen texture on any HAL device, records every call, and can be
// scripted to fail acquires and presents.
package surfacetest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/glass/surface"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Stats counts presenter calls.
type Stats struct {
	Configures   int
	Unconfigures int
	Acquires     int
	Presents     int
	Discards     int
	Destroys     int
}

// ErrDestroyed is returned by a destroyed presenter.
var ErrDestroyed = errors.New("surfacetest: presenter destroyed")

// Presenter is a headless surface.Presenter.
//
// Presenter is safe for concurrent use.
type Presenter struct {
	mu      sync.Mutex
	device  hal.Device
	formats []gputypes.TextureFormat

	config     surface.Config
	configured bool
	destroyed  bool
	tex        hal.Texture
	view       hal.TextureView

	acquireErrs []error
	presentErrs []error
	stats       Stats
}

var _ surface.Presenter = (*Presenter)(nil)

// New returns a presenter creating its images on device. With no
// formats, BGRA8UnormSrgb and BGRA8Unorm are offered.
func New(device hal.Device, formats ...gputypes.TextureFormat) *Presenter {
	if len(formats) == 0 {
		formats = []gputypes.TextureFormat{
			gputypes.TextureFormatBGRA8UnormSrgb,
			gputypes.TextureFormatBGRA8Unorm,
		}
	}
	return &Presenter{device: device, formats: formats}
}

// Factory returns a surface.Factory producing headless presenters.
func Factory(device hal.Device) surface.Factory {
	return func(surface.Handle) (surface.Presenter, error) {
		return New(device), nil
	}
}

// Register adds the "headless" backend to the global presenter registry.
func Register(device hal.Device) {
	surface.Register("headless", 10, Factory(device), nil)
}

// FailAcquire queues errors returned by the next acquires, in order.
// A nil entry lets that acquire succeed.
func (p *Presenter) FailAcquire(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquireErrs = append(p.acquireErrs, errs...)
}

// FailPresent queues errors returned by the next presents.
func (p *Presenter) FailPresent(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presentErrs = append(p.presentErrs, errs...)
}

// Stats returns a snapshot of the call counters.
func (p *Presenter) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Config returns the last applied configuration.
func (p *Presenter) Config() surface.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

// Configured reports whether images currently exist.
func (p *Presenter) Configured() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configured
}

// Formats implements surface.Presenter.
func (p *Presenter) Formats() []gputypes.TextureFormat { return p.formats }

// Configure implements surface.Presenter.
func (p *Presenter) Configure(cfg surface.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	p.dropImageLocked()

	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "headless_swapchain",
		Size:          hal.Extent3D{Width: cfg.Width, Height: cfg.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        cfg.Format,
		Usage:         cfg.Usage | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("surfacetest: create image: %w", err)
	}
	view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "headless_swapchain_view"})
	if err != nil {
		p.device.DestroyTexture(tex)
		return fmt.Errorf("surfacetest: create view: %w", err)
	}
	p.tex, p.view = tex, view
	p.config = cfg
	p.configured = true
	p.stats.Configures++
	return nil
}

// Unconfigure implements surface.Presenter.
func (p *Presenter) Unconfigure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		return
	}
	p.dropImageLocked()
	p.stats.Unconfigures++
}

func (p *Presenter) dropImageLocked() {
	if p.view != nil {
		p.device.DestroyTextureView(p.view)
	}
	if p.tex != nil {
		p.device.DestroyTexture(p.tex)
	}
	p.tex, p.view = nil, nil
	p.configured = false
}

// Acquire implements surface.Presenter.
func (p *Presenter) Acquire() (surface.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Acquires++

	if len(p.acquireErrs) > 0 {
		err := p.acquireErrs[0]
		p.acquireErrs = p.acquireErrs[1:]
		if err != nil {
			return surface.Frame{}, err
		}
	}
	if p.destroyed {
		return surface.Frame{}, ErrDestroyed
	}
	if !p.configured {
		return surface.Frame{}, surface.ErrOutdated
	}
	return surface.Frame{Texture: p.tex, View: p.view}, nil
}

// Present implements surface.Presenter.
func (p *Presenter) Present(surface.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.presentErrs) > 0 {
		err := p.presentErrs[0]
		p.presentErrs = p.presentErrs[1:]
		if err != nil {
			return err
		}
	}
	p.stats.Presents++
	return nil
}

// Discard implements surface.Presenter.
func (p *Presenter) Discard(surface.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Discards++
}

// Destroy implements surface.Presenter.
func (p *Presenter) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	p.dropImageLocked()
	p.destroyed = true
	p.stats.Destroys++
}
