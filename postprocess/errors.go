// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package postprocess

import "errors"

var (
	// ErrPostProcessAllocationFailed is returned when the HDR target, a
	// bloom level or a bind group could not be created. The frame is
	// skipped and the next one retries; nothing partially allocated is
	// kept.
	ErrPostProcessAllocationFailed = errors.New("postprocess: allocation failed")

	// ErrChainReleased is returned by a chain after Release.
	ErrChainReleased = errors.New("postprocess: chain released")

	// ErrNoTargets is returned by Run before Ensure succeeded.
	ErrNoTargets = errors.New("postprocess: targets not allocated")
)
