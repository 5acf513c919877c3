// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

func newNoopContext(t *testing.T) *Context {
	t.Helper()
	c, err := New(WithBackend(BackendNoop))
	if err != nil {
		t.Fatalf("New(noop) failed: %v", err)
	}
	return c
}

func TestNewNoop(t *testing.T) {
	c := newNoopContext(t)
	defer c.Close()

	if c.Device() == nil {
		t.Fatal("expected non-nil device")
	}
	if c.Queue() == nil {
		t.Fatal("expected non-nil queue")
	}
	if got := c.MaxPushConstantSize(); got != DefaultMaxPushConstantSize {
		t.Errorf("MaxPushConstantSize = %d, want %d", got, DefaultMaxPushConstantSize)
	}
	if c.Info().Backend != BackendNoop {
		t.Errorf("Info().Backend = %v, want noop", c.Info().Backend)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(WithBackend(Backend(42)))
	if !errors.Is(err, ErrDeviceCreation) {
		t.Fatalf("expected ErrDeviceCreation, got %v", err)
	}
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable in chain, got %v", err)
	}
}

func TestWithMaxPushConstantSize(t *testing.T) {
	c, err := New(WithBackend(BackendNoop), WithMaxPushConstantSize(ExtendedMaxPushConstantSize))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()
	if got := c.MaxPushConstantSize(); got != ExtendedMaxPushConstantSize {
		t.Errorf("MaxPushConstantSize = %d, want %d", got, ExtendedMaxPushConstantSize)
	}
}

func TestRetainRelease(t *testing.T) {
	c := newNoopContext(t)
	defer c.Close()

	r1 := c.Retain("surface")
	r2 := c.Retain("surface")
	r3 := c.Retain("pipeline")
	if got := c.Live(); got != 3 {
		t.Fatalf("Live = %d, want 3", got)
	}

	r1()
	r1() // second call is ignored
	if got := c.Live(); got != 2 {
		t.Errorf("Live after double release = %d, want 2", got)
	}
	r2()
	r3()
	if got := c.Live(); got != 0 {
		t.Errorf("Live = %d, want 0", got)
	}
}

func TestWaitIdle(t *testing.T) {
	c := newNoopContext(t)
	defer c.Close()

	if err := c.WaitIdle(DefaultWaitTimeout); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	c := newNoopContext(t)
	c.Close()
	c.Close()

	if err := c.WaitIdle(DefaultWaitTimeout); !errors.Is(err, ErrClosed) {
		t.Errorf("WaitIdle after Close = %v, want ErrClosed", err)
	}
}

func TestWrapRejectsNil(t *testing.T) {
	if _, err := Wrap(nil, nil, Config{}); !errors.Is(err, ErrDeviceCreation) {
		t.Errorf("Wrap(nil) = %v, want ErrDeviceCreation", err)
	}
}

func TestProviderRoundTrip(t *testing.T) {
	owner := newNoopContext(t)
	defer owner.Close()

	var p gpucontext.DeviceProvider = owner.Provider()
	if p.SurfaceFormat() != gputypes.TextureFormatBGRA8UnormSrgb {
		t.Errorf("SurfaceFormat = %v", p.SurfaceFormat())
	}

	borrowed, err := FromProvider(p, Config{})
	if err != nil {
		t.Fatalf("FromProvider failed: %v", err)
	}
	if borrowed.Device() != owner.Device() {
		t.Error("borrowed context must share the device")
	}
	if borrowed.Queue() != owner.Queue() {
		t.Error("borrowed context must share the queue")
	}

	// Closing the borrower must leave the owner usable.
	borrowed.Close()
	if err := owner.WaitIdle(DefaultWaitTimeout); err != nil {
		t.Errorf("owner WaitIdle after borrower Close: %v", err)
	}
}

type plainProvider struct{ Provider }

func (plainProvider) HalDevice() any { return "not a device" }

func TestFromProviderRejectsForeignHandles(t *testing.T) {
	c := newNoopContext(t)
	defer c.Close()

	_, err := FromProvider(plainProvider{c.Provider()}, Config{})
	if !errors.Is(err, ErrNotHalProvider) {
		t.Errorf("FromProvider = %v, want ErrNotHalProvider", err)
	}
}

func TestSelectAdapter(t *testing.T) {
	adapters := make([]hal.ExposedAdapter, 3)
	adapters[0].Info.Name = "other"
	adapters[1].Info.Name = "integrated"
	adapters[1].Info.DeviceType = gputypes.DeviceTypeIntegratedGPU
	adapters[2].Info.Name = "discrete"
	adapters[2].Info.DeviceType = gputypes.DeviceTypeDiscreteGPU

	tests := []struct {
		pref PowerPreference
		want string
	}{
		{PowerPreferenceNone, "other"},
		{PowerPreferenceLowPower, "integrated"},
		{PowerPreferenceHighPerformance, "discrete"},
	}
	for _, tt := range tests {
		if got := selectAdapter(adapters, tt.pref).Info.Name; got != tt.want {
			t.Errorf("selectAdapter(%d) = %q, want %q", tt.pref, got, tt.want)
		}
	}

	only := adapters[:1]
	if got := selectAdapter(only, PowerPreferenceHighPerformance).Info.Name; got != "other" {
		t.Errorf("fallback = %q, want other", got)
	}
}

// stalledQueue never reports completion.
type stalledQueue struct {
	hal.Queue
}

func (stalledQueue) PollCompleted() uint64 { return 0 }

func TestSubmitAndWait(t *testing.T) {
	c := newNoopContext(t)
	defer c.Close()

	idx, err := c.Submit(nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if idx == 0 {
		t.Fatal("expected non-zero submission index")
	}
	if !c.Completed(idx) {
		t.Error("noop submission should complete immediately")
	}
	if err := c.WaitFor(idx, DefaultWaitTimeout); err != nil {
		t.Errorf("WaitFor failed: %v", err)
	}
}

func TestWaitForTimeout(t *testing.T) {
	owner := newNoopContext(t)
	defer owner.Close()

	c, err := Wrap(owner.Device(), stalledQueue{owner.Queue()}, Config{})
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	idx, err := c.Submit(nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := c.WaitFor(idx, time.Millisecond); !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("WaitFor = %v, want ErrWaitTimeout", err)
	}
	if err := c.WaitFor(0, time.Millisecond); err != nil {
		t.Errorf("WaitFor(0) = %v, want nil", err)
	}
}

func TestProviderAdapterInfo(t *testing.T) {
	c := newNoopContext(t)
	defer c.Close()

	info := c.Provider().AdapterInfo()
	if info.Name != c.Info().Name {
		t.Errorf("AdapterInfo().Name = %q, want %q", info.Name, c.Info().Name)
	}
	if info.Type != gpucontext.AdapterTypeUnknown {
		t.Errorf("AdapterInfo().Type = %v, want Unknown for the noop adapter", info.Type)
	}
}
