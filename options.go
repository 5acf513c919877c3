// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

import (
	"github.com/gogpu/glass/config"
	"github.com/gogpu/glass/device"
	"github.com/gogpu/glass/pipeline"
	"github.com/gogpu/glass/postprocess"
	"github.com/gogpu/glass/surface"
	"github.com/gogpu/gputypes"
)

// Option configures a Glass during creation.
//
// Example:
//
//	// Headless run on the noop backend
//	g, err := glass.New(app,
//	    glass.WithDeviceOptions(device.WithBackend(device.BackendNoop)),
//	    glass.WithPresenterFactory(surfacetest.Factory(dev)))
type Option func(*options)

// options holds optional configuration for New.
type options struct {
	device        *device.Context
	deviceOptions []device.Option
	deviceConfig  *device.Config

	presenters   surface.Factory
	post         postprocess.Settings
	targetBudget uint64
	windowless   bool
	window       WindowConfig
	registry     []pipeline.RegistryOption
}

// defaultOptions returns the default options.
func defaultOptions() options {
	return options{
		post:   postprocess.DefaultSettings(),
		window: DefaultWindowConfig(),
	}
}

// WithDeviceContext runs on an existing device context. The context is
// not closed by Glass.
func WithDeviceContext(ctx *device.Context) Option {
	return func(o *options) {
		o.device = ctx
	}
}

// WithDeviceOptions passes options to device.New.
func WithDeviceOptions(opts ...device.Option) Option {
	return func(o *options) {
		o.deviceOptions = append(o.deviceOptions, opts...)
	}
}

// WithConfig applies a file configuration: device selection, target
// budget, the default window and the default post-process settings.
//
// Example:
//
//	cfg, err := config.Load("glass.toml")
//	if err != nil { ... }
//	g, err := glass.New(app, glass.WithConfig(cfg))
func WithConfig(c config.Config) Option {
	return func(o *options) {
		dc := c.DeviceConfig()
		o.deviceConfig = &dc
		o.targetBudget = c.TargetBudget()
		o.windowless = c.Windowless
		o.post = c.PostProcessSettings()

		w := DefaultWindowConfig()
		w.Size = surface.Size{Width: c.Window.Width, Height: c.Window.Height}
		w.PresentMode = c.PresentMode()
		w.ClearColor = gputypes.Color{
			R: c.Window.ClearColor[0],
			G: c.Window.ClearColor[1],
			B: c.Window.ClearColor[2],
			A: c.Window.ClearColor[3],
		}
		w.ExitOnEsc = c.Window.ExitOnEsc
		o.window = w
	}
}

// WithPresenterFactory binds windows opened through Context.OpenWindow
// immediately with presenters from f, instead of waiting for a
// WindowOpened event.
func WithPresenterFactory(f surface.Factory) Option {
	return func(o *options) {
		o.presenters = f
	}
}

// WithPostProcess sets the post-process settings of new windows.
func WithPostProcess(s postprocess.Settings) Option {
	return func(o *options) {
		o.post = s
	}
}

// WithTargetBudget caps the bytes of offscreen targets. Zero is
// unlimited.
func WithTargetBudget(bytes uint64) Option {
	return func(o *options) {
		o.targetBudget = bytes
	}
}

// WithWindowless keeps Run going when no window is open.
func WithWindowless(windowless bool) Option {
	return func(o *options) {
		o.windowless = windowless
	}
}

// WithWindowConfig sets the configuration used for windows the host
// opens without a prior Context.OpenWindow.
func WithWindowConfig(c WindowConfig) Option {
	return func(o *options) {
		o.window = c
	}
}

// WithRegistryOptions passes options to pipeline.NewRegistry.
func WithRegistryOptions(opts ...pipeline.RegistryOption) Option {
	return func(o *options) {
		o.registry = append(o.registry, opts...)
	}
}
