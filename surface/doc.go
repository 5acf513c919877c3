// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface binds native windows to presentable GPU surfaces.
//
// A WindowSurface pairs a window identifier with a Presenter, the
// platform swap chain. The surface is configured once at Bind with a
// format that never changes afterwards; every resize replaces the
// presentable resource with a freshly configured one.
//
// # Lifecycle
//
//	ws, err := surface.Bind(dev, factory, id, handle, surface.Size{Width: 800, Height: 600})
//	...
//	tok, err := ws.Acquire()
//	switch {
//	case errors.Is(err, surface.ErrSuspended):
//	    // minimized, skip this tick
//	case errors.Is(err, surface.ErrSurfaceLost):
//	    ws.Reconfigure() // and try once more
//	}
//	... record into tok.Target() ...
//	tok.Present()
//
// A zero width or height passed to Resize suspends the surface instead
// of failing. Acquire returns ErrSuspended until a non-zero size arrives.
//
// # Backends
//
// Presenters are created by factories registered by name, in the same
// way image and GPU backends are registered elsewhere in gogpu. The
// halsurface package registers "hal", the surfacetest package provides a
// headless presenter for tests and offscreen tools.
package surface
