// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloads(t *testing.T) {
	path := writeFile(t, "glass.toml", "[window]\nwidth = 800\nheight = 600\n")

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan Config, 4)
	failures := make(chan error, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path,
			func(c Config) { changes <- c },
			func(err error) { failures <- err })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("[window]\nwidth = 1024\nheight = 768\n"), 0o644))
	select {
	case c := <-changes:
		assert.Equal(t, uint32(1024), c.Window.Width)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	require.NoError(t, os.WriteFile(path, []byte("[window]\npresent_mode = \"bogus\"\n"), 0o644))
	select {
	case err := <-failures:
		assert.ErrorIs(t, err, ErrInvalid)
	case <-time.After(5 * time.Second):
		t.Fatal("invalid file not reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchRejectsUnknownFormat(t *testing.T) {
	err := Watch(context.Background(), "glass.json", func(Config) {}, nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
