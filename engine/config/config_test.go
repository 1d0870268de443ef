package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
title = "demo"
width = 1024
height = 768

[renderer]
frames_in_flight = 3
preferred_format = "b8g8r8a8_unorm"
prefer_mailbox = false
fence_timeout = "2s"

[log]
level = "debug"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Window.Title != "demo" || cfg.Window.Width != 1024 || cfg.Window.Height != 768 {
		t.Errorf("window = %+v", cfg.Window)
	}
	// Untouched keys keep their defaults.
	if cfg.Window.X != 100 || cfg.Assets.Dir != "assets" {
		t.Errorf("defaults lost: x=%d dir=%q", cfg.Window.X, cfg.Assets.Dir)
	}
	if cfg.Renderer.FramesInFlight != 3 || cfg.Renderer.PreferMailbox {
		t.Errorf("renderer = %+v", cfg.Renderer)
	}
	if cfg.Renderer.FenceTimeout.Duration != 2*time.Second || cfg.Renderer.FenceTimeout.Nanoseconds() != uint64(2*time.Second) {
		t.Errorf("fence timeout = %v", cfg.Renderer.FenceTimeout)
	}
	format, err := cfg.Renderer.SurfaceFormat()
	if err != nil || format.Format != vk.FormatB8g8r8a8Unorm || format.ColorSpace != vk.ColorSpaceSrgbNonlinear {
		t.Errorf("SurfaceFormat() = %+v, %v", format, err)
	}
	if cfg.Log.LogLevel() != core.DebugLevel {
		t.Errorf("log level = %s", cfg.Log.LogLevel())
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{name: "zero frames", toml: "[renderer]\nframes_in_flight = 0", want: "frames_in_flight"},
		{name: "zero width", toml: "[window]\nwidth = 0", want: "window size"},
		{name: "unknown format", toml: "[renderer]\npreferred_format = \"RGB565\"", want: "preferred_format"},
		{name: "unknown color space", toml: "[renderer]\npreferred_color_space = \"HDR10\"", want: "preferred_color_space"},
		{name: "bad duration", toml: "[renderer]\nfence_timeout = \"soon\"", want: "duration"},
		{name: "clear color range", toml: "[renderer]\nclear_color = [0.0, 0.0, 2.0, 1.0]", want: "clear_color"},
		{name: "unknown key", toml: "[renderer]\nvsync = true", want: "unknown keys"},
		{name: "syntax", toml: "[window\nwidth = 1", want: "line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.toml))
			if err == nil {
				t.Fatalf("Parse() succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load(missing) error = %v", err)
	}
	if cfg.Renderer.FramesInFlight != Default().Renderer.FramesInFlight {
		t.Errorf("missing file did not yield defaults")
	}

	path := filepath.Join(dir, "efvk.toml")
	if err := os.WriteFile(path, []byte("[assets]\ndir = \"data\"\ndecode_workers = 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Assets.Dir != "data" || cfg.Assets.DecodeWorkers != 8 {
		t.Errorf("assets = %+v", cfg.Assets)
	}
}

func TestZeroFenceTimeoutWaitsForever(t *testing.T) {
	if got := (Duration{}).Nanoseconds(); got != ^uint64(0) {
		t.Errorf("Nanoseconds() = %d", got)
	}
}
