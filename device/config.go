// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"github.com/gogpu/gputypes"
)

// Backend selects the HAL implementation a Context is created on.
type Backend uint8

const (
	// BackendVulkan is the default hardware backend.
	BackendVulkan Backend = iota

	// BackendNoop creates a device that accepts every call and renders
	// nothing. Used by tests and by headless tooling.
	BackendNoop
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendVulkan:
		return "vulkan"
	case BackendNoop:
		return "noop"
	default:
		return "unknown"
	}
}

// PowerPreference steers adapter selection when several are exposed.
type PowerPreference uint8

const (
	PowerPreferenceNone PowerPreference = iota
	PowerPreferenceLowPower
	PowerPreferenceHighPerformance
)

// Push-constant limits. WebGPU has no native push constants; the limit
// bounds the per-draw uniform slot that emulates them.
const (
	DefaultMaxPushConstantSize = 128

	// ExtendedMaxPushConstantSize is a larger limit requested explicitly
	// through WithMaxPushConstantSize or Config.MaxPushConstantSize, as
	// the default file configuration does. New never raises the limit on
	// its own.
	ExtendedMaxPushConstantSize = 256

	// PushConstantAlignment is the dynamic uniform offset alignment the
	// push ring honors.
	PushConstantAlignment = 256
)

// Config describes how a Context is created.
type Config struct {
	Backend         Backend
	PowerPreference PowerPreference

	// Features requested when opening the device.
	Features gputypes.Features

	// Limits requested when opening the device. The zero value means
	// gputypes.DefaultLimits().
	Limits *gputypes.Limits

	// MaxPushConstantSize bounds every pipeline's push-constant block.
	// Zero means DefaultMaxPushConstantSize.
	MaxPushConstantSize uint32

	// SurfaceFormat is the format reported to gpucontext consumers.
	// Zero means BGRA8UnormSrgb.
	SurfaceFormat gputypes.TextureFormat
}

// DefaultConfig returns the configuration used by New when no options
// are given.
func DefaultConfig() Config {
	return Config{
		Backend:             BackendVulkan,
		PowerPreference:     PowerPreferenceHighPerformance,
		MaxPushConstantSize: DefaultMaxPushConstantSize,
		SurfaceFormat:       gputypes.TextureFormatBGRA8UnormSrgb,
	}
}

// Option configures a Context during creation.
type Option func(*Config)

// WithBackend selects the HAL backend.
func WithBackend(b Backend) Option {
	return func(c *Config) { c.Backend = b }
}

// WithPowerPreference sets the adapter selection preference.
func WithPowerPreference(p PowerPreference) Option {
	return func(c *Config) { c.PowerPreference = p }
}

// WithMaxPushConstantSize overrides the push-constant limit.
func WithMaxPushConstantSize(n uint32) Option {
	return func(c *Config) { c.MaxPushConstantSize = n }
}

// WithLimits overrides the device limits.
func WithLimits(l gputypes.Limits) Option {
	return func(c *Config) { c.Limits = &l }
}

// WithFeatures sets the requested device features.
func WithFeatures(f gputypes.Features) Option {
	return func(c *Config) { c.Features = f }
}

func (c Config) normalized() Config {
	if c.MaxPushConstantSize == 0 {
		c.MaxPushConstantSize = DefaultMaxPushConstantSize
	}
	if c.SurfaceFormat == 0 {
		c.SurfaceFormat = gputypes.TextureFormatBGRA8UnormSrgb
	}
	if c.Limits == nil {
		l := gputypes.DefaultLimits()
		c.Limits = &l
	}
	return c
}
