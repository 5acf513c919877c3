// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultRingChunkSlots is the number of push-constant slots in one ring
// chunk.
const DefaultRingChunkSlots = 64

// ErrRingDestroyed is returned by a destroyed PushRing.
var ErrRingDestroyed = errors.New("pipeline: push ring destroyed")

// ringChunk is one uniform buffer of the ring and the bind group over it.
type ringChunk struct {
	buffer  hal.Buffer
	group   hal.BindGroup
	staging []byte
	used    uint32
}

// PushRing stores push-constant blocks for one frame. Each block gets its
// own aligned slot in a uniform buffer; the shader sees it through a bind
// group with a dynamic offset. Chunks are added when a frame needs more
// slots and are kept across frames.
//
// A PushRing is used by one window's frame loop and is not safe for
// concurrent use.
type PushRing struct {
	device hal.Device
	queue  hal.Queue
	layout hal.BindGroupLayout
	label  string

	slot       uint32
	chunkSlots uint32

	chunks    []*ringChunk
	current   int
	destroyed bool
}

func newPushRing(device hal.Device, queue hal.Queue, layout hal.BindGroupLayout, slot, chunkSlots uint32, label string) *PushRing {
	if chunkSlots == 0 {
		chunkSlots = DefaultRingChunkSlots
	}
	return &PushRing{
		device:     device,
		queue:      queue,
		layout:     layout,
		label:      label,
		slot:       slot,
		chunkSlots: chunkSlots,
	}
}

// SlotSize is the byte stride between blocks.
func (r *PushRing) SlotSize() uint32 { return r.slot }

// Chunks is the number of uniform buffers allocated so far.
func (r *PushRing) Chunks() int { return len(r.chunks) }

// Used is the number of blocks pushed since the last Reset.
func (r *PushRing) Used() int {
	n := 0
	for _, c := range r.chunks {
		n += int(c.used)
	}
	return n
}

// Push copies data into the next free slot and returns the bind group and
// dynamic offset that expose it.
func (r *PushRing) Push(data []byte) (hal.BindGroup, uint32, error) {
	if r.destroyed {
		return nil, 0, ErrRingDestroyed
	}
	if uint32(len(data)) > r.slot {
		return nil, 0, fmt.Errorf("%w: %d bytes, slot is %d", ErrLayoutTooLarge, len(data), r.slot)
	}

	for r.current < len(r.chunks) && r.chunks[r.current].used == r.chunkSlots {
		r.current++
	}
	if r.current == len(r.chunks) {
		if err := r.grow(); err != nil {
			return nil, 0, err
		}
	}

	c := r.chunks[r.current]
	offset := c.used * r.slot
	n := copy(c.staging[offset:offset+r.slot], data)
	clear(c.staging[offset+uint32(n) : offset+r.slot])
	c.used++
	return c.group, offset, nil
}

func (r *PushRing) grow() error {
	size := uint64(r.slot) * uint64(r.chunkSlots)
	label := fmt.Sprintf("%s_push_%d", r.label, len(r.chunks))

	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("pipeline: create push buffer: %w", err)
	}

	group, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: r.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   uint64(r.slot),
			}},
		},
	})
	if err != nil {
		r.device.DestroyBuffer(buf)
		return fmt.Errorf("pipeline: create push bind group: %w", err)
	}

	r.chunks = append(r.chunks, &ringChunk{
		buffer:  buf,
		group:   group,
		staging: make([]byte, size),
	})
	slogger().Debug("pipeline: push ring grew", "label", r.label, "chunks", len(r.chunks))
	return nil
}

// Flush uploads every used slot. It must run before the frame's command
// buffer is submitted.
func (r *PushRing) Flush() error {
	if r.destroyed {
		return ErrRingDestroyed
	}
	for _, c := range r.chunks {
		if c.used == 0 {
			continue
		}
		if err := r.queue.WriteBuffer(c.buffer, 0, c.staging[:c.used*r.slot]); err != nil {
			return fmt.Errorf("pipeline: upload push constants: %w", err)
		}
	}
	return nil
}

// Reset makes every slot available again. Callers wait for the previous
// frame that used the ring before resetting it.
func (r *PushRing) Reset() {
	for _, c := range r.chunks {
		c.used = 0
	}
	r.current = 0
}

// Destroy releases the buffers and bind groups. Destroy is idempotent.
func (r *PushRing) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	for _, c := range r.chunks {
		r.device.DestroyBindGroup(c.group)
		r.device.DestroyBuffer(c.buffer)
	}
	r.chunks = nil
}
