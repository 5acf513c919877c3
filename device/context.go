// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// DefaultWaitTimeout bounds WaitIdle during shutdown.
const DefaultWaitTimeout = 5 * time.Second

const pollInterval = 200 * time.Microsecond

// AdapterInfo describes the adapter a Context was opened on.
type AdapterInfo struct {
	Name       string
	DeviceType gputypes.DeviceType
	Backend    Backend
}

// instanceFactory is satisfied by hal.Backend and noop.API.
type instanceFactory interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Context owns the logical GPU device and its queue. Every surface,
// pipeline and post-process chain is created from one Context and holds
// a reference to it until released.
//
// Context is safe for concurrent use.
type Context struct {
	mu sync.Mutex

	instance hal.Instance // nil when the device is borrowed
	device   hal.Device
	queue    hal.Queue
	owned    bool

	info   AdapterInfo
	config Config

	dependents    map[string]int
	lastSubmitted uint64
	closed        bool
}

// New creates the instance, selects an adapter and opens a device.
//
// Selecting an adapter is a one-time decision; applications create a
// single Context and share it.
func New(opts ...Option) (*Context, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig is New with an explicit configuration.
func NewWithConfig(cfg Config) (*Context, error) {
	cfg = cfg.normalized()

	factory, err := backendFactory(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceCreation, err)
	}

	instance, err := factory.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrDeviceCreation, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrDeviceCreation, ErrNoCompatibleAdapter)
	}
	selected := selectAdapter(adapters, cfg.PowerPreference)

	openDev, err := selected.Adapter.Open(cfg.Features, *cfg.Limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", ErrDeviceCreation, err)
	}

	c := &Context{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		owned:    true,
		info: AdapterInfo{
			Name:       selected.Info.Name,
			DeviceType: selected.Info.DeviceType,
			Backend:    cfg.Backend,
		},
		config:     cfg,
		dependents: make(map[string]int),
	}
	slogger().Info("device: adapter selected",
		"name", c.info.Name, "backend", cfg.Backend.String(),
		"max_push_constant_size", cfg.MaxPushConstantSize)
	return c, nil
}

// Wrap adopts a device created elsewhere. Close does not destroy a
// wrapped device.
func Wrap(device hal.Device, queue hal.Queue, cfg Config) (*Context, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("%w: nil device or queue", ErrDeviceCreation)
	}
	return &Context{
		device:     device,
		queue:      queue,
		config:     cfg.normalized(),
		dependents: make(map[string]int),
	}, nil
}

// FromProvider adopts the device of a host application. The provider
// must expose HalDevice() and HalQueue() returning hal.Device and
// hal.Queue, as gogpu applications do.
func FromProvider(p gpucontext.DeviceProvider, cfg Config) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNotHalProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, ErrNotHalProvider
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, ErrNotHalProvider
	}
	if cfg.SurfaceFormat == 0 {
		cfg.SurfaceFormat = p.SurfaceFormat()
	}
	return Wrap(device, queue, cfg)
}

func backendFactory(b Backend) (instanceFactory, error) {
	switch b {
	case BackendNoop:
		return noop.API{}, nil
	case BackendVulkan:
		backend, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, b)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrBackendUnavailable, b)
	}
}

// selectAdapter picks the adapter matching the preference, or the first
// one exposed.
func selectAdapter(adapters []hal.ExposedAdapter, pref PowerPreference) *hal.ExposedAdapter {
	var want gputypes.DeviceType
	switch pref {
	case PowerPreferenceHighPerformance:
		want = gputypes.DeviceTypeDiscreteGPU
	case PowerPreferenceLowPower:
		want = gputypes.DeviceTypeIntegratedGPU
	default:
		return &adapters[0]
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == want {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// Device returns the HAL device used to create every resource.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the command queue shared by all windows.
func (c *Context) Queue() hal.Queue { return c.queue }

// Instance returns the HAL instance, or nil for a borrowed device.
// Surfaces are created from it.
func (c *Context) Instance() hal.Instance { return c.instance }

// Info returns the adapter description. It is empty for wrapped devices.
func (c *Context) Info() AdapterInfo { return c.info }

// Config returns the normalized creation configuration.
func (c *Context) Config() Config { return c.config }

// MaxPushConstantSize is the largest push-constant block a pipeline may
// declare.
func (c *Context) MaxPushConstantSize() uint32 { return c.config.MaxPushConstantSize }

// Retain records a dependent resource of the given kind and returns the
// function that releases it. The release function may be called more
// than once; only the first call counts.
func (c *Context) Retain(kind string) (release func()) {
	c.mu.Lock()
	c.dependents[kind]++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.dependents[kind] <= 1 {
				delete(c.dependents, kind)
				return
			}
			c.dependents[kind]--
		})
	}
}

// Live returns the number of dependents not yet released.
func (c *Context) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.dependents {
		n += v
	}
	return n
}

// Submit submits command buffers on the shared queue and returns the
// submission index to wait on.
func (c *Context) Submit(buffers []hal.CommandBuffer) (uint64, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}

	index, err := c.queue.Submit(buffers)
	if err != nil {
		if errors.Is(err, hal.ErrDeviceLost) {
			return 0, fmt.Errorf("%w: %w", ErrDeviceLost, err)
		}
		return 0, fmt.Errorf("device: submit: %w", err)
	}

	c.mu.Lock()
	if index > c.lastSubmitted {
		c.lastSubmitted = index
	}
	c.mu.Unlock()
	return index, nil
}

// Completed reports whether the submission with the given index has
// finished executing. It does not block.
func (c *Context) Completed(index uint64) bool {
	return c.queue.PollCompleted() >= index
}

// WaitFor blocks until the submission with the given index has completed
// or the timeout elapses.
func (c *Context) WaitFor(index uint64, timeout time.Duration) error {
	if index == 0 || c.Completed(index) {
		return nil
	}
	deadline := time.Now().Add(timeout)
	for !c.Completed(index) {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d after %v", ErrWaitTimeout, index, timeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// WaitIdle blocks until all work submitted so far has completed or the
// timeout elapses.
func (c *Context) WaitIdle(timeout time.Duration) error {
	c.mu.Lock()
	closed := c.closed
	last := c.lastSubmitted
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := c.WaitFor(last, timeout); err != nil {
		return err
	}
	if err := c.device.WaitIdle(); err != nil {
		if errors.Is(err, hal.ErrDeviceLost) {
			return fmt.Errorf("%w: %w", ErrDeviceLost, err)
		}
		return fmt.Errorf("device: wait idle: %w", err)
	}
	return nil
}

// Close waits for outstanding work and destroys the device and instance
// if this Context created them. Close is idempotent.
func (c *Context) Close() {
	if err := c.WaitIdle(DefaultWaitTimeout); err != nil && !errors.Is(err, ErrClosed) {
		slogger().Warn("device: wait idle on close", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	if len(c.dependents) > 0 {
		kinds := make([]string, 0, len(c.dependents))
		for k := range c.dependents {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			slogger().Warn("device: dependent still live at close", "kind", k, "count", c.dependents[k])
		}
	}

	if !c.owned {
		return
	}
	c.device.Destroy()
	if c.instance != nil {
		c.instance.Destroy()
	}
	slogger().Info("device: closed", "name", c.info.Name)
}
