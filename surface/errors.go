// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import "errors"

// Surface errors. Presenters report failures with these sentinels so that
// callers can classify them with errors.Is.
var (
	// ErrUnsupportedSurfaceFormat is returned by Bind when the presenter
	// offers no format the renderer can write.
	ErrUnsupportedSurfaceFormat = errors.New("surface: no compatible surface format")

	// ErrSurfaceLost means the presentable resource is gone and must be
	// reconfigured before the next acquire.
	ErrSurfaceLost = errors.New("surface: surface lost")

	// ErrOutdated means the swap chain no longer matches the window. It is
	// handled like ErrSurfaceLost.
	ErrOutdated = errors.New("surface: surface outdated")

	// ErrTimeout means no image became available in time.
	ErrTimeout = errors.New("surface: acquire timed out")

	// ErrOutOfMemory is reported when the presentation engine cannot
	// allocate.
	ErrOutOfMemory = errors.New("surface: out of memory")

	// ErrSuspended is returned by Acquire while the window has a zero
	// dimension. It is not a failure.
	ErrSuspended = errors.New("surface: suspended")

	// ErrFrameInFlight is returned when acquiring while the previous token
	// has been neither presented nor discarded.
	ErrFrameInFlight = errors.New("surface: previous frame not presented or discarded")

	// ErrFrameEnded is returned by a token that was already presented or
	// discarded.
	ErrFrameEnded = errors.New("surface: frame already ended")

	// ErrReleased is returned by operations on a released surface.
	ErrReleased = errors.New("surface: released")
)

// IsLost reports whether err requires a reconfigure before the next
// acquire.
func IsLost(err error) bool {
	return errors.Is(err, ErrSurfaceLost) || errors.Is(err, ErrOutdated)
}
