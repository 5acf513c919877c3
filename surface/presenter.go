// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ID identifies a window for the lifetime of the process.
type ID uint64

// Handle carries the native display and window handles of a window.
type Handle struct {
	Display uintptr
	Window  uintptr
}

// Size is a window size in physical pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// Zero reports whether either dimension is zero.
func (s Size) Zero() bool { return s.Width == 0 || s.Height == 0 }

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// PresentMode selects how acquired images are queued for display.
type PresentMode uint8

const (
	// PresentModeFifo waits for vertical blank. Always supported.
	PresentModeFifo PresentMode = iota

	// PresentModeMailbox replaces the queued image, low latency with vsync.
	PresentModeMailbox

	// PresentModeImmediate presents without waiting; may tear.
	PresentModeImmediate
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeFifo:
		return "fifo"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// AlphaMode selects how the compositor treats the alpha channel.
type AlphaMode uint8

const (
	AlphaModeOpaque AlphaMode = iota
	AlphaModePremultiplied
	AlphaModePostMultiplied
)

// Config is the complete configuration of a presentable surface.
// A Config is never modified in place; reconfiguration builds a new one.
type Config struct {
	Format      gputypes.TextureFormat
	Width       uint32
	Height      uint32
	PresentMode PresentMode
	AlphaMode   AlphaMode
	Usage       gputypes.TextureUsage
}

// Frame is one acquired swap-chain image.
type Frame struct {
	Texture    hal.Texture
	View       hal.TextureView
	Suboptimal bool

	// Native carries presenter-specific state needed by Present and
	// Discard.
	Native any
}

// Presenter is the platform side of a swap chain.
//
// Acquire and Present report recoverable conditions with ErrSurfaceLost,
// ErrOutdated, ErrTimeout and ErrOutOfMemory (possibly wrapped).
type Presenter interface {
	// Formats lists the formats the surface supports, preferred first.
	Formats() []gputypes.TextureFormat

	// Configure (re)creates the presentable images.
	Configure(cfg Config) error

	// Unconfigure drops the presentable images. Safe to call when not
	// configured.
	Unconfigure()

	Acquire() (Frame, error)
	Present(f Frame) error
	Discard(f Frame)

	// Destroy releases the surface. The presenter is unusable afterwards.
	Destroy()
}

// preferredFormats are tried in order against Presenter.Formats.
var preferredFormats = []gputypes.TextureFormat{
	gputypes.TextureFormatBGRA8UnormSrgb,
	gputypes.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatRGBA8UnormSrgb,
	gputypes.TextureFormatRGBA8Unorm,
}

// ChooseFormat picks the swap-chain format. A non-zero requested format
// must be offered; otherwise the first preferred format that is offered
// wins.
func ChooseFormat(offered []gputypes.TextureFormat, requested gputypes.TextureFormat) (gputypes.TextureFormat, error) {
	if requested != 0 {
		for _, f := range offered {
			if f == requested {
				return f, nil
			}
		}
		return 0, fmt.Errorf("%w: requested %v not offered", ErrUnsupportedSurfaceFormat, requested)
	}
	for _, want := range preferredFormats {
		for _, f := range offered {
			if f == want {
				return f, nil
			}
		}
	}
	return 0, ErrUnsupportedSurfaceFormat
}
