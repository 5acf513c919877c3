// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Block builds a push-constant block by field name.
type Block struct {
	layout PushConstants
	data   []byte
}

// NewBlock returns a zeroed block of the layout's size.
func NewBlock(layout PushConstants) *Block {
	return &Block{layout: layout, data: make([]byte, layout.Size)}
}

func (b *Block) field(name string, size uint32) (Field, error) {
	f, ok := b.layout.Field(name)
	if !ok {
		return Field{}, fmt.Errorf("%w: no field %q", ErrInvalidPushConstantLayout, name)
	}
	if f.Size < size {
		return Field{}, fmt.Errorf("%w: field %q is %d bytes, writing %d", ErrPushConstantSizeMismatch, name, f.Size, size)
	}
	return f, nil
}

// SetFloat32 writes consecutive float32 values starting at the field.
func (b *Block) SetFloat32(name string, v ...float32) error {
	f, err := b.field(name, uint32(len(v))*4)
	if err != nil {
		return err
	}
	for i, x := range v {
		binary.LittleEndian.PutUint32(b.data[f.Offset+uint32(i)*4:], math.Float32bits(x))
	}
	return nil
}

// SetUint32 writes consecutive uint32 values starting at the field.
func (b *Block) SetUint32(name string, v ...uint32) error {
	f, err := b.field(name, uint32(len(v))*4)
	if err != nil {
		return err
	}
	for i, x := range v {
		binary.LittleEndian.PutUint32(b.data[f.Offset+uint32(i)*4:], x)
	}
	return nil
}

// Bytes returns the block. The slice aliases the block's storage.
func (b *Block) Bytes() []byte { return b.data }
