// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long Watch waits after the last change to a file
// before reloading it. Editors often write a file in several steps.
const DefaultSettle = 50 * time.Millisecond

// Watch reloads path whenever it changes and passes every valid result
// to onChange. Files that fail to load are reported to onError, which
// may be nil, and the previous configuration stays in effect.
//
// Watch blocks until ctx is cancelled and returns ctx.Err(). It watches
// the containing directory so that files replaced by rename are seen.
func Watch(ctx context.Context, path string, onChange func(Config), onError func(error)) error {
	if _, err := FormatOf(path); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}
	slogger().Info("config: watching", "path", abs)

	report := func(err error) {
		slogger().Warn("config: reload failed", "path", abs, "error", err)
		if onError != nil {
			onError(err)
		}
	}

	settle := time.NewTimer(DefaultSettle)
	if !settle.Stop() {
		<-settle.C
	}
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return ctx.Err()
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			settle.Reset(DefaultSettle)

		case <-settle.C:
			c, err := Load(abs)
			if err != nil {
				report(err)
				continue
			}
			slogger().Info("config: reloaded", "path", abs)
			onChange(c)

		case err, ok := <-w.Errors:
			if !ok {
				return ctx.Err()
			}
			report(fmt.Errorf("config: watch: %w", err))
		}
	}
}
