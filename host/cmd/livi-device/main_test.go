package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livi/config"
)

func TestCommandsRegistered(t *testing.T) {
	app := newApp()
	for _, name := range []string{"run", "describe", "relay", "image", "transcribe", "poll", "health"} {
		assert.NotNil(t, app.Command(name), name)
	}
}

func TestReporter(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	r := newConsoleReporter(&buf, "\r\n")
	r.Reply("quick-describe", "Hola")
	r.Failed("record-relay", errors.New("connect failed"))
	r.Info("backend %s", "ok")

	assert.Equal(t, "[quick-describe] Hola\r\n[record-relay] failed: connect failed\r\nbackend ok\r\n", buf.String())
}

func TestDeviceConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
device:
  debounce: 30ms
  button_pin: 4
backend:
  host: backend.local
  detail: high
capture:
  warmup_frames: 1
`), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	dc := deviceConfig(cfg)
	assert.Equal(t, 30*time.Millisecond, dc.Button.Debounce)
	assert.Equal(t, 400*time.Millisecond, dc.Button.DoubleClickWindow)
	assert.True(t, dc.Button.ActiveLow)
	assert.EqualValues(t, 4, dc.ButtonPin)
	assert.Equal(t, 1, dc.WarmupFrames)
	assert.Equal(t, "high", dc.Detail)
	assert.Equal(t, "/rec.wav", dc.WAVPath)

	opts := transportOptions(cfg)
	assert.Equal(t, 20*time.Second, opts.IdleTimeout)
}
