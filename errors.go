// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

import "errors"

var (
	// ErrRenderDataExpired is returned by RenderData after Render returned.
	ErrRenderDataExpired = errors.New("glass: render data used after render returned")

	// ErrUnknownWindow is returned for window IDs that are not open.
	ErrUnknownWindow = errors.New("glass: unknown window")

	// ErrClosed is returned by a closed Glass.
	ErrClosed = errors.New("glass: closed")

	// ErrNoPresenter is returned when a window is opened without a
	// presenter and no presenter factory is configured.
	ErrNoPresenter = errors.New("glass: no presenter for window")
)
