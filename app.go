// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

// App receives the frame-loop hooks. Hooks run on the loop goroutine in
// this order:
//
//	Start
//	repeat: Input (per event), Update, Render + AfterRender (per window), EndOfFrame
//	End
//
// Embed BaseApp to implement only some of them.
type App interface {
	// Start runs once before the first event. Pipelines are usually
	// registered here. An error stops Run.
	Start(ctx *Context) error

	Input(ctx *Context, ev Event)
	Update(ctx *Context)

	// Render records the passes of one window between the queued
	// requests and the post-process chain. An error discards the frame.
	Render(ctx *Context, rd *RenderData) error

	// AfterRender runs after the frame of id was presented.
	AfterRender(ctx *Context, id WindowID)

	EndOfFrame(ctx *Context)
	End(ctx *Context)
}

// BaseApp implements every App hook as a no-op.
type BaseApp struct{}

func (BaseApp) Start(*Context) error               { return nil }
func (BaseApp) Input(*Context, Event)              {}
func (BaseApp) Update(*Context)                    {}
func (BaseApp) Render(*Context, *RenderData) error { return nil }
func (BaseApp) AfterRender(*Context, WindowID)     {}
func (BaseApp) EndOfFrame(*Context)                {}
func (BaseApp) End(*Context)                       {}

var _ App = BaseApp{}
