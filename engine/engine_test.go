package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/efvk/engine/config"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/vulkan"
)

func noopRecord(cmd vulkan.Commands, target vulkan.FrameTarget) error {
	return nil
}

func TestNewAppliesOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Window.Title = "options"
	cfg.Renderer.ClearColor = [4]float32{1, 0, 0, 1}

	game := &Game{FnRecord: noopRecord}
	e, err := New(game, WithConfig(cfg), WithRenderer(vulkan.RendererDescription{Name: "forward"}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if e.Config() != cfg || e.Stage() != EngineStageUninitialized {
		t.Errorf("config or stage not applied")
	}
	if game.Name != "options" {
		t.Errorf("game name = %q, want window title", game.Name)
	}
	if game.Renderer.Name != "forward" || game.Renderer.ClearColor != cfg.Renderer.ClearColor {
		t.Errorf("renderer description = %+v", game.Renderer)
	}
	if w, h := e.GetFramebufferSize(); w != cfg.Window.Width || h != cfg.Window.Height {
		t.Errorf("framebuffer size = %dx%d", w, h)
	}
}

func TestNewWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.toml")
	if err := os.WriteFile(path, []byte("[renderer]\nframes_in_flight = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := New(&Game{FnRecord: noopRecord}, WithConfigFile(path))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if e.Config().Renderer.FramesInFlight != 3 {
		t.Errorf("frames in flight = %d", e.Config().Renderer.FramesInFlight)
	}
}

func TestNewRejects(t *testing.T) {
	bad := config.Default()
	bad.Renderer.FramesInFlight = 0
	tests := []struct {
		name string
		game *Game
		opts []Option
	}{
		{name: "no record function", game: &Game{}},
		{name: "invalid config", game: &Game{FnRecord: noopRecord}, opts: []Option{WithConfig(bad)}},
		{name: "nil config", game: &Game{FnRecord: noopRecord}, opts: []Option{WithConfig(nil)}},
		{name: "unnamed renderer", game: &Game{FnRecord: noopRecord}, opts: []Option{WithRenderer(vulkan.RendererDescription{})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.game, tt.opts...); err == nil {
				t.Errorf("New() succeeded")
			}
		})
	}
}

func TestRunBeforeInitialize(t *testing.T) {
	e, err := New(&Game{FnRecord: noopRecord}, WithConfig(config.Default()))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); !errors.Is(err, core.ErrMisuse) {
		t.Errorf("Run() error = %v, want misuse", err)
	}
}

func TestResizeEventsSuspendAndResume(t *testing.T) {
	var resizes [][2]uint32
	e, err := New(&Game{
		FnRecord: noopRecord,
		FnOnResize: func(w, h uint32) error {
			resizes = append(resizes, [2]uint32{w, h})
			return nil
		},
	}, WithConfig(config.Default()))
	if err != nil {
		t.Fatal(err)
	}
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	fire := func(w, h uint32) {
		var data core.EventContext
		data.U32[0], data.U32[1] = w, h
		e.events.Fire(core.EVENT_CODE_RESIZED, nil, data)
	}
	fire(0, 0)
	if !e.isSuspended {
		t.Fatalf("minimized window did not suspend")
	}
	fire(800, 600)
	if e.isSuspended {
		t.Fatalf("restored window still suspended")
	}
	fire(800, 600)
	if len(resizes) != 1 || resizes[0] != [2]uint32{800, 600} {
		t.Errorf("game saw resizes %v", resizes)
	}
}

func TestQuitEventStopsLoop(t *testing.T) {
	e, err := New(&Game{FnRecord: noopRecord}, WithConfig(config.Default()))
	if err != nil {
		t.Fatal(err)
	}
	e.isRunning.Store(true)
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
	if e.isRunning.Load() {
		t.Errorf("quit event did not stop the loop")
	}
}

func TestShutdownWakesSuspendedLoop(t *testing.T) {
	e, err := New(&Game{FnRecord: noopRecord}, WithConfig(config.Default()))
	if err != nil {
		t.Fatal(err)
	}
	// Without a window the platform wake is a no-op.
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown() before startup error = %v", err)
	}

	wakes := 0
	e.wake = func() {
		if e.isRunning.Load() {
			t.Errorf("loop woken before the running flag was cleared")
		}
		wakes++
	}
	e.isRunning.Store(true)
	e.isSuspended = true

	done := make(chan struct{})
	go func() {
		_ = e.Shutdown()
		close(done)
	}()
	<-done
	if e.isRunning.Load() {
		t.Errorf("Shutdown() left the loop running")
	}
	if wakes != 1 {
		t.Errorf("Shutdown() woke the loop %d times, want 1", wakes)
	}
}
