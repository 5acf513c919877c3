// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

import (
	"fmt"

	"github.com/gogpu/glass/pipeline"
	"github.com/gogpu/glass/postprocess"
	"github.com/gogpu/glass/surface"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// WindowState is the frame state of a window.
type WindowState uint8

const (
	StateIdle WindowState = iota
	StateAcquiring
	StateRecording
	StateSubmitted
	StateClosed
)

func (s WindowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateRecording:
		return "recording"
	case StateSubmitted:
		return "submitted"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// WindowConfig describes a window.
type WindowConfig struct {
	Title       string
	Size        surface.Size
	PresentMode surface.PresentMode
	AlphaMode   surface.AlphaMode

	// Format requests a swap-chain format; zero picks one.
	Format gputypes.TextureFormat

	// ClearColor clears the HDR target at the start of every frame.
	ClearColor gputypes.Color

	// ExitOnEsc closes the window when Escape is pressed while it has
	// focus.
	ExitOnEsc bool
}

// DefaultWindowConfig returns a 1280x720 vsynced window cleared to
// opaque black.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Title:       "glass",
		Size:        surface.Size{Width: 1280, Height: 720},
		PresentMode: surface.PresentModeFifo,
		ClearColor:  gputypes.Color{A: 1},
	}
}

func (c WindowConfig) surfaceOptions() []surface.Option {
	return []surface.Option{
		surface.WithFormat(c.Format),
		surface.WithPresentMode(c.PresentMode),
		surface.WithAlphaMode(c.AlphaMode),
	}
}

// WindowInfo is a snapshot of a window.
type WindowInfo struct {
	ID     WindowID
	Title  string
	Size   surface.Size
	Format gputypes.TextureFormat
	State  WindowState

	// Pending is true until the native window is bound.
	Pending   bool
	Suspended bool
	Focused   bool

	// Frames counts presented frames.
	Frames uint64
}

// window is the per-window state owned by the loop.
type window struct {
	id    WindowID
	cfg   WindowConfig
	state WindowState

	surface *surface.WindowSurface // nil while pending
	chain   *postprocess.Chain
	ring    *pipeline.PushRing
	post    postprocess.Settings

	lastSubmission uint64
	inflight       hal.CommandBuffer

	closeRequested bool
	focused        bool
	frames         uint64
}

func (w *window) label() string { return fmt.Sprintf("window_%d", w.id) }

func (w *window) info() WindowInfo {
	info := WindowInfo{
		ID:      w.id,
		Title:   w.cfg.Title,
		Size:    w.cfg.Size,
		Format:  w.cfg.Format,
		State:   w.state,
		Pending: w.surface == nil,
		Focused: w.focused,
		Frames:  w.frames,
	}
	if w.surface != nil {
		info.Size = w.surface.Size()
		info.Format = w.surface.Format()
		info.Suspended = w.surface.Suspended()
	}
	return info
}
