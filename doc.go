// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package glass drives a GPU device across one or more windows.
//
// # Overview
//
// A Glass owns the device context, the pipeline registry, the shared
// post-process pipelines and every window. Each Tick runs one frame for
// every live window in the order the windows were opened:
//
//	Idle -> Acquiring -> Recording -> Submitted -> Idle
//
// While Recording, queued compute requests run in one compute pass,
// queued render requests run in one render pass into the window's HDR
// target, App.Render adds its own passes, and the post-process chain
// (bloom, then tonemap) writes the swap-chain image.
//
// # Quick Start
//
//	type demo struct{ glass.BaseApp }
//
//	func (demo) Render(ctx *glass.Context, rd *glass.RenderData) error {
//	    rec, err := rd.Recorder()
//	    ...
//	}
//
//	g, err := glass.New(demo{}, glass.WithConfig(config.Default()))
//	if err != nil { ... }
//	err = g.Run(ctx, events)
//
// # Failures
//
// Failures of one window never stop the others. A surface lost twice in
// a row tears its window down; timeouts and post-process allocation
// failures skip the frame. Only a lost device is returned from Tick.
//
// # Logging
//
// Nothing is logged by default. SetLogger enables logging for glass and
// every sub-package.
package glass
