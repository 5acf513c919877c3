// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Provider exposes a Context through gpucontext, so that other gogpu
// libraries (gg, ui toolkits) can render with the same device.
//
// Besides gpucontext.DeviceProvider it implements HalDevice and
// HalQueue, which those libraries probe for direct HAL access.
type Provider struct {
	c *Context
}

var _ gpucontext.DeviceProvider = Provider{}

// Provider returns the gpucontext view of c.
func (c *Context) Provider() Provider { return Provider{c: c} }

type providerDevice struct{ c *Context }

// Poll is a no-op: HAL submissions complete through fences.
func (providerDevice) Poll(bool) {}

func (d providerDevice) Destroy() { d.c.Close() }

type providerQueue struct{}

type providerAdapter struct{}

func (p Provider) Device() gpucontext.Device   { return providerDevice{p.c} }
func (p Provider) Queue() gpucontext.Queue     { return providerQueue{} }
func (p Provider) Adapter() gpucontext.Adapter { return providerAdapter{} }

// SurfaceFormat reports the preferred swap-chain format.
func (p Provider) SurfaceFormat() gputypes.TextureFormat { return p.c.config.SurfaceFormat }

// HalDevice returns the HAL device as an untyped value.
func (p Provider) HalDevice() any { return p.c.device }

// HalQueue returns the HAL queue as an untyped value.
func (p Provider) HalQueue() any { return p.c.queue }

// AdapterInfo reports the adapter name and class.
func (p Provider) AdapterInfo() gpucontext.AdapterInfo {
	info := gpucontext.AdapterInfo{Name: p.c.info.Name, Type: gpucontext.AdapterTypeUnknown}
	switch p.c.info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		info.Type = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		info.Type = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		info.Type = gpucontext.AdapterTypeSoftware
	}
	return info
}
