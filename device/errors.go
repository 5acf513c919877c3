// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import "errors"

var (
	// ErrDeviceCreation wraps every failure that prevents a device from
	// being created. It is fatal: there is nothing to render with.
	ErrDeviceCreation = errors.New("device: creation failed")

	// ErrNoCompatibleAdapter is returned when the backend exposes no adapter.
	ErrNoCompatibleAdapter = errors.New("device: no compatible adapter")

	// ErrBackendUnavailable is returned when the requested HAL backend is
	// not compiled in.
	ErrBackendUnavailable = errors.New("device: backend not available")

	// ErrDeviceLost reports that the logical device is gone. Every window
	// shares the device, so this error stops the frame loop.
	ErrDeviceLost = errors.New("device: device lost")

	// ErrWaitTimeout is returned when submitted work does not complete in
	// time. The caller may retry on a later frame.
	ErrWaitTimeout = errors.New("device: wait timed out")

	// ErrClosed is returned by operations on a closed context.
	ErrClosed = errors.New("device: context closed")

	// ErrNotHalProvider is returned by FromProvider when the provider does
	// not expose HAL handles.
	ErrNotHalProvider = errors.New("device: provider does not expose HAL device and queue")
)
