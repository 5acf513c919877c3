// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"fmt"

	"github.com/gogpu/glass/device"
	"github.com/gogpu/glass/target"
	"github.com/gogpu/gputypes"
)

// Options configures Bind.
type Options struct {
	// Format requests a specific swap-chain format. Zero selects the
	// first supported of BGRA8UnormSrgb, BGRA8Unorm, RGBA8UnormSrgb,
	// RGBA8Unorm.
	Format      gputypes.TextureFormat
	PresentMode PresentMode
	AlphaMode   AlphaMode
}

// Option configures Bind.
type Option func(*Options)

// WithFormat requests a swap-chain format.
func WithFormat(f gputypes.TextureFormat) Option {
	return func(o *Options) { o.Format = f }
}

// WithPresentMode sets the presentation mode.
func WithPresentMode(m PresentMode) Option {
	return func(o *Options) { o.PresentMode = m }
}

// WithAlphaMode sets the compositor alpha mode.
func WithAlphaMode(m AlphaMode) Option {
	return func(o *Options) { o.AlphaMode = m }
}

// WindowSurface is the presentable surface of one window.
//
// WindowSurface is owned by the frame loop of its window and is not safe
// for concurrent use.
type WindowSurface struct {
	id        ID
	handle    Handle
	presenter Presenter
	release   func()

	config     Config
	configured bool
	suspended  bool
	released   bool

	inFlight *FrameToken
}

// Bind creates the presenter for handle and configures it at size. A
// zero size binds the surface in the suspended state.
func Bind(dev *device.Context, f Factory, id ID, handle Handle, size Size, opts ...Option) (*WindowSurface, error) {
	p, err := f(handle)
	if err != nil {
		return nil, fmt.Errorf("surface: create presenter for window %d: %w", id, err)
	}
	ws, err := BindPresenter(dev, p, id, handle, size, opts...)
	if err != nil {
		p.Destroy()
		return nil, err
	}
	return ws, nil
}

// BindPresenter is Bind with a presenter created by the caller. On
// failure the presenter is left to the caller.
func BindPresenter(dev *device.Context, p Presenter, id ID, handle Handle, size Size, opts ...Option) (*WindowSurface, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	format, err := ChooseFormat(p.Formats(), o.Format)
	if err != nil {
		return nil, fmt.Errorf("window %d: %w", id, err)
	}

	ws := &WindowSurface{
		id:        id,
		handle:    handle,
		presenter: p,
		config: Config{
			Format:      format,
			Width:       size.Width,
			Height:      size.Height,
			PresentMode: o.PresentMode,
			AlphaMode:   o.AlphaMode,
			Usage:       gputypes.TextureUsageRenderAttachment,
		},
	}

	if size.Zero() {
		ws.suspended = true
	} else if err := ws.configure(); err != nil {
		return nil, err
	}

	ws.release = dev.Retain("surface")
	slogger().Info("surface: bound", "window", id, "size", size.String(), "format", format, "suspended", ws.suspended)
	return ws, nil
}

// ID returns the window identifier.
func (ws *WindowSurface) ID() ID { return ws.id }

// Handle returns the native handles the surface was bound to.
func (ws *WindowSurface) Handle() Handle { return ws.handle }

// Config returns the current configuration.
func (ws *WindowSurface) Config() Config { return ws.config }

// Format returns the swap-chain format fixed at Bind.
func (ws *WindowSurface) Format() gputypes.TextureFormat { return ws.config.Format }

// Size returns the configured size.
func (ws *WindowSurface) Size() Size { return Size{ws.config.Width, ws.config.Height} }

// Suspended reports whether the window has a zero dimension.
func (ws *WindowSurface) Suspended() bool { return ws.suspended }

// Released reports whether Release has been called.
func (ws *WindowSurface) Released() bool { return ws.released }

func (ws *WindowSurface) configure() error {
	if ws.configured {
		ws.presenter.Unconfigure()
		ws.configured = false
	}
	if err := ws.presenter.Configure(ws.config); err != nil {
		return fmt.Errorf("surface: configure window %d at %dx%d: %w", ws.id, ws.config.Width, ws.config.Height, err)
	}
	ws.configured = true
	return nil
}

// Resize reconfigures the surface for a new window size. A zero width or
// height suspends the surface; the next non-zero size resumes it.
func (ws *WindowSurface) Resize(size Size) error {
	if ws.released {
		return ErrReleased
	}
	ws.discardInFlight()

	if size.Zero() {
		if !ws.suspended {
			slogger().Debug("surface: suspended", "window", ws.id)
		}
		ws.suspended = true
		return nil
	}
	if !ws.suspended && ws.configured && size == ws.Size() {
		return nil
	}

	next := ws.config
	next.Width, next.Height = size.Width, size.Height
	ws.config = next
	ws.suspended = false
	if err := ws.configure(); err != nil {
		return err
	}
	slogger().Debug("surface: resized", "window", ws.id, "size", size.String())
	return nil
}

// Reconfigure recreates the presentable resource with the current
// configuration. Used to recover from ErrSurfaceLost.
func (ws *WindowSurface) Reconfigure() error {
	if ws.released {
		return ErrReleased
	}
	if ws.suspended {
		return nil
	}
	ws.discardInFlight()
	return ws.configure()
}

// Acquire obtains the next swap-chain image.
func (ws *WindowSurface) Acquire() (*FrameToken, error) {
	switch {
	case ws.released:
		return nil, ErrReleased
	case ws.suspended:
		return nil, ErrSuspended
	case ws.inFlight != nil:
		return nil, ErrFrameInFlight
	}

	f, err := ws.presenter.Acquire()
	if err != nil {
		return nil, fmt.Errorf("surface: acquire window %d: %w", ws.id, err)
	}
	tok := &FrameToken{
		surface: ws,
		frame:   f,
		target:  target.SwapChain(f.Texture, f.View, ws.config.Format, ws.config.Width, ws.config.Height),
	}
	ws.inFlight = tok
	return tok, nil
}

func (ws *WindowSurface) discardInFlight() {
	if ws.inFlight != nil {
		ws.inFlight.Discard()
	}
}

// Release drops the presenter and its GPU resources. It reports whether
// this call performed the release; later calls do nothing.
func (ws *WindowSurface) Release() bool {
	if ws.released {
		return false
	}
	ws.discardInFlight()
	if ws.configured {
		ws.presenter.Unconfigure()
		ws.configured = false
	}
	ws.presenter.Destroy()
	ws.released = true
	if ws.release != nil {
		ws.release()
	}
	slogger().Info("surface: released", "window", ws.id)
	return true
}

// FrameToken is the swap-chain image acquired for one tick. Exactly one
// of Present and Discard ends it.
type FrameToken struct {
	surface *WindowSurface
	frame   Frame
	target  *target.RenderTarget
	ended   bool
}

// Target returns the swap-chain image as a render target.
func (t *FrameToken) Target() *target.RenderTarget { return t.target }

// Suboptimal reports whether the presenter asked for a reconfigure.
func (t *FrameToken) Suboptimal() bool { return t.frame.Suboptimal }

// Present queues the image for display.
func (t *FrameToken) Present() error {
	if t.ended {
		return ErrFrameEnded
	}
	t.end()
	if err := t.surface.presenter.Present(t.frame); err != nil {
		return fmt.Errorf("surface: present window %d: %w", t.surface.id, err)
	}
	return nil
}

// Discard returns the image without presenting it. Discarding an ended
// token does nothing.
func (t *FrameToken) Discard() {
	if t.ended {
		return
	}
	t.end()
	t.surface.presenter.Discard(t.frame)
}

func (t *FrameToken) end() {
	t.ended = true
	if t.surface.inFlight == t {
		t.surface.inFlight = nil
	}
}
