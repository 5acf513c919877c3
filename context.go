// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

import (
	"fmt"

	"github.com/gogpu/glass/device"
	"github.com/gogpu/glass/pipeline"
	"github.com/gogpu/glass/postprocess"
	"github.com/gogpu/glass/surface"
	"github.com/gogpu/glass/target"
)

// Context is the application's handle on a running Glass. It is passed
// to every App hook.
type Context struct {
	g *Glass
}

// Device returns the shared device context.
func (c *Context) Device() *device.Context { return c.g.dev }

// Registry returns the pipeline registry.
func (c *Context) Registry() *pipeline.Registry { return c.g.reg }

// Allocator returns the allocator of offscreen targets.
func (c *Context) Allocator() *target.Allocator { return c.g.alloc }

// PostProcess returns the shared post-process pipelines.
func (c *Context) PostProcess() *postprocess.Pipelines { return c.g.post }

// Frame returns the number of ticks run so far.
func (c *Context) Frame() uint64 { return c.g.frame }

// OpenWindow registers a window. With a presenter factory the window is
// bound at once; otherwise it stays pending until the host reports a
// WindowOpened event for the returned ID.
func (c *Context) OpenWindow(cfg WindowConfig) (WindowID, error) {
	g := c.g
	if g.closed {
		return 0, ErrClosed
	}
	w := g.addWindow(g.allocID(), cfg)
	if g.opts.presenters == nil {
		slogger().Debug("glass: window pending", "window", w.id, "title", cfg.Title)
		return w.id, nil
	}
	if err := g.bind(w, surface.Handle{}, nil); err != nil {
		g.forget(w)
		return 0, err
	}
	return w.id, nil
}

// CloseWindow closes a window. A window closed from its own Render hook
// is torn down when Render returns, and its frame is discarded.
func (c *Context) CloseWindow(id WindowID) error {
	if c.g.closed {
		return ErrClosed
	}
	return c.g.closeWindow(id)
}

// Enqueue queues a request for the next tick of window id. Requests are
// dropped when that tick renders no frame for the window. Enqueue may be
// called from any goroutine and fails with ErrUnknownWindow for windows
// that are not open.
func (c *Context) Enqueue(id WindowID, req pipeline.Request) error {
	return c.g.enqueue(id, req)
}

// SetPostProcess replaces the post-process settings of a window. Targets
// are reallocated on the next frame when the mip chain changes.
func (c *Context) SetPostProcess(id WindowID, s postprocess.Settings) error {
	w, ok := c.g.windows[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWindow, id)
	}
	w.post = s
	return nil
}

// PostProcessSettings returns the post-process settings of a window.
func (c *Context) PostProcessSettings(id WindowID) (postprocess.Settings, error) {
	w, ok := c.g.windows[id]
	if !ok {
		return postprocess.Settings{}, fmt.Errorf("%w: %d", ErrUnknownWindow, id)
	}
	return w.post, nil
}

// Window returns a snapshot of a window.
func (c *Context) Window(id WindowID) (WindowInfo, error) {
	w, ok := c.g.windows[id]
	if !ok {
		return WindowInfo{}, fmt.Errorf("%w: %d", ErrUnknownWindow, id)
	}
	return w.info(), nil
}

// Windows returns the open windows in the order they were opened.
func (c *Context) Windows() []WindowID {
	return append([]WindowID(nil), c.g.order...)
}

// Exit stops Run after the current tick.
func (c *Context) Exit() { c.g.exit = true }

// DefaultWindow returns the window configuration set with WithConfig or
// WithWindowConfig.
func (c *Context) DefaultWindow() WindowConfig { return c.g.opts.window }
