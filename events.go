// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

import (
	"github.com/gogpu/glass/surface"
)

// WindowID identifies a window. Zero is never a valid window.
type WindowID = surface.ID

// Event is delivered by an EventSource. Every event reaches App.Input;
// the window events below are also applied by Glass.
type Event interface {
	// Window returns the window the event belongs to, or zero.
	Window() WindowID
}

// WindowOpened binds the native window of id. An id that was not
// returned by Context.OpenWindow opens a window with the default
// WindowConfig. A nil Presenter is created with the presenter factory.
type WindowOpened struct {
	ID        WindowID
	Handle    surface.Handle
	Size      surface.Size
	Presenter surface.Presenter
}

// WindowResized reports a new size in physical pixels. A zero dimension
// suspends the window.
type WindowResized struct {
	ID   WindowID
	Size surface.Size
}

// WindowClosed reports that the native window is gone.
type WindowClosed struct {
	ID WindowID
}

// WindowFocused reports a focus change.
type WindowFocused struct {
	ID      WindowID
	Focused bool
}

// Key is a keyboard key.
type Key uint16

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeySpace
)

// KeyEvent reports a key press or release. Synthetic events are
// generated by the host, for example on focus change, and are ignored
// by ExitOnEsc.
type KeyEvent struct {
	ID        WindowID
	Key       Key
	Pressed   bool
	Synthetic bool
}

func (e WindowOpened) Window() WindowID  { return e.ID }
func (e WindowResized) Window() WindowID { return e.ID }
func (e WindowClosed) Window() WindowID  { return e.ID }
func (e WindowFocused) Window() WindowID { return e.ID }
func (e KeyEvent) Window() WindowID      { return e.ID }

// EventSource delivers host events. PollEvents returns the events
// gathered since the last call without blocking; ok is false once the
// source is exhausted.
type EventSource interface {
	PollEvents() (events []Event, ok bool)
}

// Script is an EventSource replaying one batch of events per poll. It is
// exhausted after the last batch.
type Script struct {
	batches [][]Event
}

// NewScript returns a Script polling the given batches in order. An
// empty batch is a tick without events.
func NewScript(batches ...[]Event) *Script {
	return &Script{batches: batches}
}

// Add appends a batch.
func (s *Script) Add(events ...Event) *Script {
	s.batches = append(s.batches, events)
	return s
}

// Idle appends n empty batches.
func (s *Script) Idle(n int) *Script {
	for range n {
		s.batches = append(s.batches, nil)
	}
	return s
}

// PollEvents implements EventSource.
func (s *Script) PollEvents() ([]Event, bool) {
	if len(s.batches) == 0 {
		return nil, false
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, len(s.batches) > 0
}

// ChannelSource is an EventSource fed by another goroutine. It is
// exhausted when the channel is closed.
type ChannelSource struct {
	ch <-chan Event
}

// NewChannelSource returns a source draining ch.
func NewChannelSource(ch <-chan Event) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// PollEvents implements EventSource.
func (s *ChannelSource) PollEvents() ([]Event, bool) {
	var out []Event
	for {
		select {
		case ev, ok := <-s.ch:
			if !ok {
				return out, false
			}
			out = append(out, ev)
		default:
			return out, true
		}
	}
}
