package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

func newTestRenderer(t *testing.T, frames int, desc RendererDescription) (*fakeDriver, *fakeWindow, *Renderer) {
	t.Helper()
	d := newFakeDriver()
	window := newFakeWindow(800, 600)
	options := DefaultRendererOptions()
	options.FramesInFlight = frames
	r, err := NewRenderer(d, window, desc, options)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return d, window, r
}

// clearPass is the minimal record callback: one cleared render pass.
func clearPass(cmd Commands, target FrameTarget) error {
	cmd.BeginRenderPass(target.RenderPass, target.Framebuffer, target.Extent, target.ClearColor)
	cmd.SetViewport(target.Extent)
	cmd.SetScissor(target.Extent)
	cmd.EndRenderPass()
	return nil
}

func TestRunFramePresents(t *testing.T) {
	d, _, r := newTestRenderer(t, 2, RendererDescription{Name: "clear", ClearColor: [4]float32{0, 0, 0.2, 1}})

	var seen FrameTarget
	status, err := r.RunFrame(func(cmd Commands, target FrameTarget) error {
		seen = target
		return clearPass(cmd, target)
	})
	if err != nil {
		t.Fatalf("RunFrame() error = %v", err)
	}
	if status != FramePresented {
		t.Fatalf("status = %s, want presented", status)
	}
	if seen.Extent != (vk.Extent2D{Width: 800, Height: 600}) || seen.ClearColor != [4]float32{0, 0, 0.2, 1} {
		t.Errorf("record callback saw %+v", seen)
	}
	if seen.Framebuffer != r.Surface().Framebuffers[seen.ImageIndex] {
		t.Errorf("target framebuffer does not match image %d", seen.ImageIndex)
	}

	frame := r.Frames().Frame(0)
	submit := d.submits[len(d.submits)-1]
	if submit.CommandBuffer != frame.CommandBuffer || submit.Wait != frame.ImageAvailable ||
		submit.Signal != frame.RenderFinished || submit.Fence != frame.InFlight {
		t.Errorf("frame submit did not use frame 0's sync objects: %+v", submit)
	}
	if submit.WaitStage != FRAME_WAIT_STAGE {
		t.Errorf("wait stage = %v", submit.WaitStage)
	}
	if r.Frames().Index() != 1 || r.FrameNumber() != 1 {
		t.Errorf("after one frame: index %d, frame number %d", r.Frames().Index(), r.FrameNumber())
	}
}

func TestFrameIndexIsPeriodic(t *testing.T) {
	for _, frames := range []int{1, 2, 3} {
		d, _, r := newTestRenderer(t, frames, RendererDescription{Name: "periodic"})
		for n := 1; n <= 12; n++ {
			status, err := r.RunFrame(clearPass)
			if err != nil || status != FramePresented {
				t.Fatalf("frames=%d: frame %d: %s, %v", frames, n, status, err)
			}
			if got := r.Frames().Index(); got != n%frames {
				t.Fatalf("frames=%d: after %d frames index = %d, want %d", frames, n, got, n%frames)
			}
		}
		if len(d.pending) > frames {
			t.Errorf("frames=%d: %d submissions in flight", frames, len(d.pending))
		}
	}
}

func TestRunFrameOutOfDateOnAcquire(t *testing.T) {
	d, window, r := newTestRenderer(t, 2, RendererDescription{Name: "resize"})
	window.script([2]uint32{1024, 768})
	d.acquireQueue = []SurfaceStatus{SurfaceOutOfDate}

	recorded := false
	status, err := r.RunFrame(func(cmd Commands, target FrameTarget) error {
		recorded = true
		return nil
	})
	if err != nil {
		t.Fatalf("RunFrame() error = %v", err)
	}
	if status != FrameSurfaceInvalid {
		t.Fatalf("status = %s, want surface-invalid", status)
	}
	if recorded || len(d.submits) != 0 {
		t.Errorf("out-of-date frame was recorded or submitted")
	}
	if r.Frames().Index() != 0 {
		t.Errorf("frame index advanced to %d on an aborted frame", r.Frames().Index())
	}
	if r.Surface().Generation() != 1 || r.Surface().Extent() != (vk.Extent2D{Width: 1024, Height: 768}) {
		t.Errorf("surface generation %d extent %v", r.Surface().Generation(), r.Surface().Extent())
	}

	// The aborted frame left its fence signaled, so the retry does not block.
	status, err = r.RunFrame(clearPass)
	if err != nil || status != FramePresented {
		t.Fatalf("retry: %s, %v", status, err)
	}
}

func TestRunFrameRecreatesAfterPresent(t *testing.T) {
	tests := []struct {
		name    string
		present SurfaceStatus
		acquire SurfaceStatus
		resize  bool
		want    FrameStatus
	}{
		{name: "suboptimal present", present: SurfaceSuboptimal, want: FramePresented},
		{name: "out of date present", present: SurfaceOutOfDate, want: FrameSurfaceInvalid},
		{name: "suboptimal acquire", acquire: SurfaceSuboptimal, want: FramePresented},
		{name: "resize flag", resize: true, want: FramePresented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, r := newTestRenderer(t, 2, RendererDescription{Name: tt.name})
			d.presentQueue = []SurfaceStatus{tt.present}
			d.acquireQueue = []SurfaceStatus{tt.acquire}
			if tt.resize {
				r.OnResize()
			}

			status, err := r.RunFrame(clearPass)
			if err != nil {
				t.Fatalf("RunFrame() error = %v", err)
			}
			if status != tt.want {
				t.Errorf("status = %s, want %s", status, tt.want)
			}
			if len(d.submits) != 1 {
				t.Errorf("%d submits, want 1", len(d.submits))
			}
			if r.Surface().Generation() != 1 {
				t.Errorf("surface generation = %d, want 1", r.Surface().Generation())
			}
			if r.Frames().Index() != 1 {
				t.Errorf("frame index = %d, want 1", r.Frames().Index())
			}

			// The flag is consumed.
			if _, err := r.RunFrame(clearPass); err != nil {
				t.Fatalf("second frame: %v", err)
			}
			if r.Surface().Generation() != 1 {
				t.Errorf("surface recreated again without cause")
			}
		})
	}
}

func TestRunFrameRecordErrorIsFatal(t *testing.T) {
	_, _, r := newTestRenderer(t, 2, RendererDescription{Name: "broken"})
	_, err := r.RunFrame(func(cmd Commands, target FrameTarget) error {
		return errSentinel
	})
	if !errors.Is(err, errSentinel) || !core.IsFatal(err) {
		t.Fatalf("error = %v, want fatal record error", err)
	}
}

func TestRunFrameWritesPerFrameBuffers(t *testing.T) {
	_, _, r := newTestRenderer(t, 2, RendererDescription{
		Name:            "uniforms",
		PerFrameBuffers: []PerFrameBuffer{{Name: "globals", Size: 16, Usage: vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)}},
	})
	for n := 0; n < 4; n++ {
		_, err := r.RunFrame(func(cmd Commands, target FrameTarget) error {
			target.Frame.Buffer("globals").Mapped[0] = byte(n)
			return clearPass(cmd, target)
		})
		if err != nil {
			t.Fatalf("frame %d: %v", n, err)
		}
	}
	// Frame slots alternate, so each slot holds the last value written through it.
	if got := r.Frames().Frame(0).Buffer("globals").Mapped[0]; got != 2 {
		t.Errorf("slot 0 holds %d, want 2", got)
	}
	if got := r.Frames().Frame(1).Buffer("globals").Mapped[0]; got != 3 {
		t.Errorf("slot 1 holds %d, want 3", got)
	}
}

func TestOnSurfaceRecreatedListener(t *testing.T) {
	var extents []vk.Extent2D
	d, window, r := newTestRenderer(t, 2, RendererDescription{
		Name: "listener",
		OnSurfaceRecreated: func(extent vk.Extent2D) error {
			extents = append(extents, extent)
			return nil
		},
	})
	window.script([2]uint32{640, 360})
	d.acquireQueue = []SurfaceStatus{SurfaceOutOfDate}
	if _, err := r.RunFrame(clearPass); err != nil {
		t.Fatalf("RunFrame() error = %v", err)
	}
	want := []vk.Extent2D{{Width: 800, Height: 600}, {Width: 640, Height: 360}}
	if len(extents) != len(want) || extents[0] != want[0] || extents[1] != want[1] {
		t.Errorf("listener saw %v, want %v", extents, want)
	}
}

func TestRendererShutdownReleasesEverything(t *testing.T) {
	d, _, r := newTestRenderer(t, 3, RendererDescription{
		Name:            "full",
		PerFrameBuffers: []PerFrameBuffer{{Name: "globals", Size: 64}},
	})

	mesh := metadata.NewMesh("quad",
		[]position{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		[]uint32{0, 1, 2, 2, 3, 0})
	if err := r.Uploader().UploadMesh(mesh); err != nil {
		t.Fatalf("UploadMesh() error = %v", err)
	}
	if _, err := r.Uploader().UploadTexture("checker", solidTexture(64, 64, 0xff)); err != nil {
		t.Fatalf("UploadTexture() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := r.RunFrame(clearPass); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	if err := r.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if d.live() != 0 {
		t.Errorf("%d objects alive after shutdown", d.live())
	}
	if d.events[len(d.events)-1] == "destroy swapchain" {
		t.Errorf("surface scope was released after the main scope")
	}
	if err := r.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if _, err := r.RunFrame(clearPass); !errors.Is(err, core.ErrMisuse) {
		t.Errorf("frame after shutdown: error = %v, want misuse", err)
	}
}

func TestNewRendererFailures(t *testing.T) {
	t.Run("zero frames in flight", func(t *testing.T) {
		options := DefaultRendererOptions()
		options.FramesInFlight = 0
		_, err := NewRenderer(newFakeDriver(), newFakeWindow(800, 600), RendererDescription{}, options)
		if !errors.Is(err, core.ErrMisuse) {
			t.Errorf("error = %v, want misuse", err)
		}
	})
	t.Run("missing blit support", func(t *testing.T) {
		d := newFakeDriver()
		d.linearBlit = false
		_, err := NewRenderer(d, newFakeWindow(800, 600), RendererDescription{}, DefaultRendererOptions())
		if !errors.Is(err, core.ErrCapabilityMissing) {
			t.Errorf("error = %v, want capability missing", err)
		}
		if d.live() != 0 {
			t.Errorf("%d objects leaked by failed construction", d.live())
		}
	})
}
