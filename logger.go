// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/glass/config"
	"github.com/gogpu/glass/device"
	"github.com/gogpu/glass/pipeline"
	"github.com/gogpu/glass/postprocess"
	"github.com/gogpu/glass/surface"
	"github.com/gogpu/glass/target"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for glass and all its sub-packages.
// By default nothing is logged. Pass nil to restore silence.
//
// Log levels used by glass:
//   - [slog.LevelDebug]: per-frame events (skipped frames, suspended windows)
//   - [slog.LevelInfo]: lifecycle (adapter selected, window bound, released)
//   - [slog.LevelWarn]: recoverable failures (acquire, allocation, present)
//   - [slog.LevelError]: queued requests rejected while recording, and
//     windows torn down after repeated surface loss
//
// Example:
//
//	glass.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	device.SetLogger(l)
	surface.SetLogger(l)
	target.SetLogger(l)
	pipeline.SetLogger(l)
	postprocess.SetLogger(l)
	config.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger { return loggerPtr.Load() }

func slogger() *slog.Logger { return loggerPtr.Load() }
