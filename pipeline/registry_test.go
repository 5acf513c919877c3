// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"errors"
	"strings"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	r, _ := newTestRegistry(t)

	spec := renderSpec("blit", 16, uniformGroup())
	spec.Name = "blit"
	rid, err := r.Register(KindRender, testShader(), spec)
	if err != nil {
		t.Fatalf("Register(render): %v", err)
	}
	cid, err := r.Register(KindCompute, testShader(), computeSpec("cull", 0))
	if err != nil {
		t.Fatalf("Register(compute): %v", err)
	}
	if rid == cid {
		t.Fatal("IDs must be distinct")
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}

	got, ok := r.Lookup("blit")
	if !ok || got != rid {
		t.Errorf("Lookup(blit) = %d,%v want %d", got, ok, rid)
	}
	p, err := r.Get(rid)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Kind() != KindRender || p.BindGroups() != 1 || p.BindGroupLayout(0) == nil {
		t.Errorf("pipeline = kind %v, %d groups", p.Kind(), p.BindGroups())
	}
	if p.BindGroupLayout(1) != nil {
		t.Error("BindGroupLayout out of range must be nil")
	}
	if size, _ := r.PushConstantSize(rid); size != 16 {
		t.Errorf("PushConstantSize = %d, want 16", size)
	}
	if _, err := r.PushConstantSize(999); !errors.Is(err, ErrUnknownPipeline) {
		t.Errorf("PushConstantSize(unknown) = %v", err)
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	r, _ := newTestRegistry(t)
	spec := renderSpec("a", 0)
	spec.Name = "same"
	if _, err := r.Register(KindRender, testShader(), spec); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := r.Register(KindRender, testShader(), spec); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("second Register = %v, want ErrDuplicateName", err)
	}
}

func TestRegisterTooLarge(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register(KindRender, testShader(), renderSpec("big", 132))
	if !errors.Is(err, ErrLayoutTooLarge) {
		t.Fatalf("Register = %v, want ErrLayoutTooLarge", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d after failed Register", r.Len())
	}
}

func TestRegisterEmptyShader(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register(KindRender, Shader{}, renderSpec("x", 0))
	if !errors.Is(err, ErrEmptyShader) {
		t.Fatalf("Register = %v, want ErrEmptyShader", err)
	}
}

func TestUnregisterReregister(t *testing.T) {
	r, dev := newCountingRegistry(t)
	base := dev.total()

	spec := renderSpec("x", 16, uniformGroup())
	spec.Name = "x"
	id1, err := r.Register(KindRender, testShader(), spec)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Unregister(id1); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if got := dev.total(); got != base {
		t.Errorf("live objects after Unregister = %d, want %d", got, base)
	}
	if _, ok := r.Lookup("x"); ok {
		t.Error("name must be freed by Unregister")
	}
	if err := r.Unregister(id1); !errors.Is(err, ErrUnknownPipeline) {
		t.Errorf("second Unregister = %v, want ErrUnknownPipeline", err)
	}

	id2, err := r.Register(KindRender, testShader(), spec)
	if err != nil {
		t.Fatalf("re-Register: %v", err)
	}
	if id2 == id1 {
		t.Error("re-registered pipeline must get a fresh ID")
	}
}

func TestRegisterCleansUpOnFailure(t *testing.T) {
	for _, stage := range []string{"module", "bgl", "layout", "render"} {
		t.Run(stage, func(t *testing.T) {
			r, dev := newCountingRegistry(t)
			base := dev.total()

			dev.mu.Lock()
			dev.fail[stage] = true
			dev.mu.Unlock()

			_, err := r.Register(KindRender, testShader(), renderSpec("x", 16, uniformGroup(), uniformGroup()))
			if !errors.Is(err, errInjected) {
				t.Fatalf("Register = %v, want injected failure", err)
			}
			if got := dev.total(); got != base {
				t.Errorf("live objects = %d, want %d", got, base)
			}
			if r.Len() != 0 {
				t.Errorf("Len = %d, want 0", r.Len())
			}
		})
	}
}

func TestRegistryClose(t *testing.T) {
	r, dev := newCountingRegistry(t)
	for i := 0; i < 3; i++ {
		if _, err := r.Register(KindCompute, testShader(), computeSpec("c", 8, uniformGroup())); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	r.Close()
	r.Close()
	if got := dev.total(); got != 0 {
		t.Errorf("live objects after Close = %d, want 0", got)
	}
	if _, err := r.Register(KindCompute, testShader(), computeSpec("c", 0)); !errors.Is(err, ErrRegistryClosed) {
		t.Errorf("Register after Close = %v, want ErrRegistryClosed", err)
	}
}

func TestRegistryRetainsDevice(t *testing.T) {
	c := newNoopContext(t)
	r, err := NewRegistry(c)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if c.Live() != 1 {
		t.Errorf("Live = %d, want 1", c.Live())
	}
	r.Close()
	if c.Live() != 0 {
		t.Errorf("Live after Close = %d, want 0", c.Live())
	}
}

func TestCompileWGSL(t *testing.T) {
	words, err := CompileWGSL(testWGSL)
	if err != nil {
		if strings.Contains(err.Error(), "not yet implemented") || strings.Contains(err.Error(), "not supported") {
			t.Skipf("naga cannot compile the test shader: %v", err)
		}
		t.Fatalf("CompileWGSL: %v", err)
	}
	if words[0] != spirvMagic {
		t.Errorf("magic = %#x, want %#x", words[0], spirvMagic)
	}
}

func TestCompileWGSLInvalid(t *testing.T) {
	if _, err := CompileWGSL("fn broken( {"); err == nil {
		t.Error("expected error for invalid WGSL")
	}
}
