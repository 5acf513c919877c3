// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

// stubPresenter is the smallest Presenter; it never renders.
type stubPresenter struct {
	name   string
	handle Handle
}

func (p *stubPresenter) Formats() []gputypes.TextureFormat {
	return []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm}
}
func (p *stubPresenter) Configure(Config) error  { return nil }
func (p *stubPresenter) Unconfigure()            {}
func (p *stubPresenter) Acquire() (Frame, error) { return Frame{}, nil }
func (p *stubPresenter) Present(Frame) error     { return nil }
func (p *stubPresenter) Discard(Frame)           {}
func (p *stubPresenter) Destroy()                {}

func stubFactory(name string) Factory {
	return func(h Handle) (Presenter, error) {
		return &stubPresenter{name: name, handle: h}, nil
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	r.Register("test", 50, stubFactory("test"), nil)

	entry, ok := r.Get("test")
	if !ok {
		t.Fatal("registered backend not found")
	}
	if entry.Name != "test" {
		t.Errorf("Name = %s, want test", entry.Name)
	}
	if entry.Priority != 50 {
		t.Errorf("Priority = %d, want 50", entry.Priority)
	}
	if !entry.Available() {
		t.Error("backend should be available (nil Available func)")
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("temp", 10, stubFactory("temp"), nil)
	r.Unregister("temp")

	if _, ok := r.Get("temp"); ok {
		t.Error("backend should not exist after unregister")
	}
}

func TestRegistryListOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("low", 10, stubFactory("low"), nil)
	r.Register("high", 100, stubFactory("high"), nil)
	r.Register("mid", 50, stubFactory("mid"), nil)
	r.Register("mid2", 50, stubFactory("mid2"), nil)

	want := []string{"high", "mid", "mid2", "low"}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRegistryAvailable(t *testing.T) {
	r := NewRegistry()
	r.Register("available", 100, stubFactory("available"), func() bool { return true })
	r.Register("unavailable", 200, stubFactory("unavailable"), func() bool { return false })

	available := r.Available()
	if len(available) != 1 || available[0] != "available" {
		t.Fatalf("Available = %v, want [available]", available)
	}
}

func TestRegistryNewPresenterPriority(t *testing.T) {
	r := NewRegistry()
	r.Register("low", 10, stubFactory("low"), nil)
	r.Register("high", 100, stubFactory("high"), nil)

	h := Handle{Display: 1, Window: 2}
	p, err := r.NewPresenter(h)
	if err != nil {
		t.Fatalf("NewPresenter failed: %v", err)
	}
	sp := p.(*stubPresenter)
	if sp.name != "high" {
		t.Errorf("selected = %s, want high", sp.name)
	}
	if sp.handle != h {
		t.Errorf("handle = %+v, want %+v", sp.handle, h)
	}
}

func TestRegistryFallsBackOnFactoryError(t *testing.T) {
	r := NewRegistry()
	r.Register("broken", 100, func(Handle) (Presenter, error) {
		return nil, errors.New("no window system")
	}, nil)
	r.Register("headless", 10, stubFactory("headless"), nil)

	p, err := r.NewPresenter(Handle{})
	if err != nil {
		t.Fatalf("NewPresenter failed: %v", err)
	}
	if p.(*stubPresenter).name != "headless" {
		t.Error("expected fallback to the headless backend")
	}
}

func TestRegistryNewPresenterByNameErrors(t *testing.T) {
	r := NewRegistry()
	r.Register("unavailable", 50, stubFactory("u"), func() bool { return false })

	_, err := r.NewPresenterByName("nonexistent", Handle{})
	var notFound *BackendNotFoundError
	if !errors.As(err, &notFound) || notFound.Name != "nonexistent" {
		t.Errorf("expected BackendNotFoundError, got %v", err)
	}

	_, err = r.NewPresenterByName("unavailable", Handle{})
	var unavailable *BackendUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("expected BackendUnavailableError, got %v", err)
	}
}

func TestRegistryNoBackend(t *testing.T) {
	r := NewRegistry()
	if _, err := r.NewPresenter(Handle{}); !errors.Is(err, ErrNoBackendAvailable) {
		t.Errorf("expected ErrNoBackendAvailable, got %v", err)
	}
}

func TestRegistryOverwrite(t *testing.T) {
	r := NewRegistry()
	r.Register("test", 10, stubFactory("a"), nil)
	r.Register("test", 50, stubFactory("b"), nil)

	entry, _ := r.Get("test")
	if entry.Priority != 50 {
		t.Errorf("Priority = %d, want 50 (should be overwritten)", entry.Priority)
	}
}

func TestBackendErrorMessages(t *testing.T) {
	if msg := (&BackendNotFoundError{Name: "vulkan"}).Error(); msg != "surface: backend not found: vulkan" {
		t.Errorf("BackendNotFoundError = %q", msg)
	}
	if msg := (&BackendUnavailableError{Name: "metal"}).Error(); msg != "surface: backend unavailable: metal" {
		t.Errorf("BackendUnavailableError = %q", msg)
	}
}

func TestChooseFormat(t *testing.T) {
	srgb := gputypes.TextureFormatBGRA8UnormSrgb
	unorm := gputypes.TextureFormatBGRA8Unorm
	rgba := gputypes.TextureFormatRGBA8Unorm

	tests := []struct {
		name      string
		offered   []gputypes.TextureFormat
		requested gputypes.TextureFormat
		want      gputypes.TextureFormat
		wantErr   bool
	}{
		{"prefers srgb", []gputypes.TextureFormat{unorm, srgb}, 0, srgb, false},
		{"falls back", []gputypes.TextureFormat{rgba}, 0, rgba, false},
		{"requested offered", []gputypes.TextureFormat{srgb, unorm}, unorm, unorm, false},
		{"requested missing", []gputypes.TextureFormat{srgb}, rgba, 0, true},
		{"nothing usable", []gputypes.TextureFormat{gputypes.TextureFormatRGBA16Float}, 0, 0, true},
		{"empty", nil, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChooseFormat(tt.offered, tt.requested)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedSurfaceFormat) {
					t.Fatalf("err = %v, want ErrUnsupportedSurfaceFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("format = %v, want %v", got, tt.want)
			}
		})
	}
}
