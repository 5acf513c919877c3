// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ErrEmptyShader is returned when a Shader carries neither WGSL nor SPIR-V.
var ErrEmptyShader = errors.New("pipeline: shader has no source")

// Shader is the source of a pipeline's shader module. Exactly one of WGSL
// and SPIRV is used; SPIRV wins when both are set.
type Shader struct {
	Label string
	WGSL  string
	SPIRV []uint32
}

// CompileWGSL translates WGSL to SPIR-V words with naga.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("pipeline: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("pipeline: compile shader: %d bytes is not a whole number of words", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	if len(words) == 0 || words[0] != spirvMagic {
		return nil, errors.New("pipeline: compile shader: output is not SPIR-V")
	}
	return words, nil
}

// createModule builds the shader module. With validate set, WGSL is run
// through naga first and the resulting SPIR-V is handed to the device.
func createModule(device hal.Device, s Shader, validate bool) (hal.ShaderModule, error) {
	src := hal.ShaderSource{SPIRV: s.SPIRV}
	switch {
	case len(s.SPIRV) > 0:
	case s.WGSL == "":
		return nil, ErrEmptyShader
	case validate:
		words, err := CompileWGSL(s.WGSL)
		if err != nil {
			return nil, err
		}
		src.SPIRV = words
	default:
		src.WGSL = s.WGSL
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  s.Label,
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create shader module %q: %w", s.Label, err)
	}
	return module, nil
}
